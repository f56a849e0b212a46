// Command worker is the cobra-based entry point wiring configuration,
// the DynamoDB-backed stores, the template runtime, and the HTTP facade
// + background worker loop together, grounded on the teacher's
// cmd/podcaster root command and cmd/mcp-server/main.go's signal
// handling.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/audio"
	"github.com/botcast/worker/internal/config"
	"github.com/botcast/worker/internal/httpapi"
	"github.com/botcast/worker/internal/observability"
	"github.com/botcast/worker/internal/plugins"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
	"github.com/botcast/worker/internal/storage"
	"github.com/botcast/worker/internal/tts"
	"github.com/botcast/worker/internal/urn"
	"github.com/botcast/worker/internal/worker"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the botcast worker: HTTP facade and task dispatch loop",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("worker %s\n", Version)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	log := observability.InitLogger(cfg.LogLevel)
	log.Info("botcast worker starting", "version", Version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg.LoadSecrets(ctx, log)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.OTelEndpoint != "" {
		tp, err := observability.InitTracer(ctx, "botcast-worker", Version, cfg.Environment)
		if err != nil {
			log.Warn("failed to init tracer, continuing without spans", "error", err)
		} else {
			defer tp.Shutdown(ctx)
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	store := repo.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
	podcasts := repo.NewPodcastRepo(store)
	scripts := repo.NewScriptRepo(store)
	secrets := repo.NewSecretRepo(store)
	comments := repo.NewCommentRepo(store)
	episodes := repo.NewEpisodeRepo(store, comments)
	mail := repo.NewMailRepo(store)
	tasks := repo.NewTaskRepo(store)
	users := repo.NewUserRepo(store)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	pluginDeps := plugins.Deps{
		HTTPClient:              httpClient,
		UserAgent:               cfg.UserAgent,
		Repos:                   urn.Repos{Podcast: podcasts, Episode: episodes, Comment: comments, Script: scripts},
		MailRepo:                mail,
		SecretRepo:              secrets,
		AnthropicAPIKey:         cfg.AnthropicAPIKey,
		AnthropicModel:          cfg.AnthropicModel,
		LLMAssistantPollTimeout: cfg.LLMAssistantPollTimeout,
	}

	generators := buildGenerators(cfg, httpClient)
	pipeline := audio.NewPipeline(generators)
	uploader := storage.NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.CDNBaseURL)

	// Background tasks have no authenticated caller; me() inside a
	// rendered template correctly reports Unauthorized for them.
	backgroundDeps := pluginDeps
	backgroundDeps.CurrentUser = func() (*repo.User, error) {
		return nil, apperr.Unauthorized("no authenticated user in a background task")
	}
	rootCtx := runtime.NewRootContext(plugins.Default(backgroundDeps)...)

	recovered, err := worker.RecoverStuckTasks(ctx, tasks)
	if err != nil {
		log.Error("recover stuck tasks failed", "error", err)
	} else if recovered > 0 {
		log.Warn("recovered stuck tasks at startup", "count", recovered)
	}

	loop := worker.New(worker.Deps{
		Tasks:       tasks,
		Scripts:     scripts,
		Episodes:    episodes,
		Podcasts:    podcasts,
		RootContext: rootCtx,
		Pipeline:    pipeline,
		Upload:      uploader,
		WorkDirRoot: os.TempDir(),
		KeepWorkDir: cfg.KeepWorkDir,
		Log:         log,
	})

	server := httpapi.New(httpapi.Deps{
		Scripts:    scripts,
		Tasks:      tasks,
		Users:      users,
		PluginDeps: pluginDeps,
		Log:        log,
	})
	httpapi.Version = Version

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http facade listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go loop.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http facade failed", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildGenerators registers the audio pipeline's Generators for every
// URN resource SPEC_FULL.md §4.G names: the local voicevox engine, the
// pre-recorded slice passthrough, and a shared ProviderGenerator backed
// by a tts.Registry for every provider in the TTS family. The registry
// constructs each provider lazily on first use, so a missing API key
// surfaces as that segment's synthesis error rather than silently
// dropping the URN resource at startup.
func buildGenerators(cfg config.Config, httpClient *http.Client) *audio.GeneratorSet {
	set := audio.NewGeneratorSet()
	set.Register("voicevox", audio.NewVoicevoxGenerator(cfg.VoicevoxEndpoint, httpClient))
	set.Register("audio", audio.NewSliceGenerator(httpClient))

	providerGen := audio.NewProviderGenerator(tts.NewRegistry())
	for _, resource := range []string{"elevenlabs", "google", "gemini", "gemini-vertex", "vertex-express", "polly"} {
		set.Register(resource, providerGen)
	}

	return set
}
