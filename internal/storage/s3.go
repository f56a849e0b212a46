// Package storage uploads episode audio pipeline artifacts to S3,
// adapted from the teacher's mcpserver/storage.go Storage.Upload,
// generalized from one MP3-only upload to the two artifacts (audio, SRT)
// SPEC_FULL.md §4.I's GenerateAudio branch produces.
package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader uploads audio pipeline artifacts to a CDN-fronted S3 bucket.
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewS3Uploader(client *s3.Client, bucket, cdnBaseURL string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, cdnBaseURL: strings.TrimSuffix(cdnBaseURL, "/")}
}

// UploadAudio uploads an episode's MP3 and returns its public URL.
func (u *S3Uploader) UploadAudio(ctx context.Context, episodeID, path string) (string, error) {
	return u.upload(ctx, "episodes/"+episodeID+".mp3", path, "audio/mp3")
}

// UploadSRT uploads an episode's subtitle text and returns its public URL.
func (u *S3Uploader) UploadSRT(ctx context.Context, episodeID, content string) (string, error) {
	key := "episodes/" + episodeID + ".srt"
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("upload srt to s3: %w", err)
	}
	return u.cdnBaseURL + "/" + key, nil
}

func (u *S3Uploader) upload(ctx context.Context, key, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &u.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return u.cdnBaseURL + "/" + key, nil
}
