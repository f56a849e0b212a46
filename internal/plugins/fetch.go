package plugins

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

const fetchTimeout = 5 * time.Second

// FetchPlugin registers fetch, fetch_json, and text, grounded on
// original_source's imports/fetch.rs and the teacher's (now superseded)
// CLI content-ingestion URLIngester.directFetch for the go-readability
// wiring.
type FetchPlugin struct {
	Deps Deps
}

func (p FetchPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("fetch", runtime.Callable(runtime.AsyncFunc(p.fetch)))
	ctx.Insert("fetch_json", runtime.Callable(runtime.AsyncFunc(p.fetchJSON)))
	ctx.Insert("text", runtime.Callable(runtime.AsyncFunc(p.text)))
}

func (p FetchPlugin) httpGet(rc *runtime.RenderContext, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(rc.Go, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Script("fetch: build request", err)
	}
	req.Header.Set("User-Agent", p.Deps.userAgent())

	resp, err := p.Deps.httpClient().Do(req)
	if err != nil {
		return nil, apperr.Script("fetch: "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Script("fetch: non-200 response", apperr.Other(resp.Status, nil))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Script("fetch: read body", err)
	}
	return body, nil
}

func (p FetchPlugin) fetch(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("fetch(url) takes exactly one argument")
	}
	url, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	body, err := p.httpGet(rc, url)
	if err != nil {
		return runtime.Null, err
	}
	return runtime.String(decodeUTF8(body)), nil
}

func (p FetchPlugin) fetchJSON(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("fetch_json(url) takes exactly one argument")
	}
	url, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	body, err := p.httpGet(rc, url)
	if err != nil {
		return runtime.Null, err
	}
	var raw any
	dec := json.NewDecoder(strings.NewReader(decodeUTF8(body)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return runtime.Null, apperr.Script("fetch_json: parse response", err)
	}
	return runtime.FromJSON(raw), nil
}

func (p FetchPlugin) text(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("text(html) takes exactly one argument")
	}
	html, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return runtime.Null, apperr.Script("text: extract readable content", err)
	}
	return runtime.String(article.TextContent), nil
}

// decodeUTF8 returns body unchanged as a string. It reads no XML/HTML
// charset declaration and does not reject invalid UTF-8 byte sequences.
func decodeUTF8(body []byte) string {
	return string(body)
}
