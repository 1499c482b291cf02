package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/events"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// Archiver copies audit events to an S3-compatible bucket as JSON lines.
type Archiver struct {
	events events.Repository
	config *sc.Config
	now    func() time.Time
}

func NewArchiver(repo events.Repository, config *sc.Config) *Archiver {
	return &Archiver{events: repo, config: config, now: time.Now}
}

// ExportResult names the written object.
type ExportResult struct {
	Bucket string
	Key    string
	Count  int
}

func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("audit/%04d/%02d/%02d/%s.jsonl", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Export uploads every event created at or after since. Nothing is written
// when there are no events.
func (a *Archiver) Export(ctx context.Context, since time.Time) (*ExportResult, error) {
	list, err := a.events.ListSince(ctx, since, 0)
	if err != nil {
		return nil, err
	}
	res := &ExportResult{Bucket: a.config.S3Bucket, Count: len(list)}
	if len(list) == 0 {
		return res, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range list {
		if err := enc.Encode(&list[i]); err != nil {
			return nil, err
		}
	}

	client, err := a.client(ctx)
	if err != nil {
		return nil, err
	}

	res.Key = ObjectKey(a.now())
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(res.Bucket),
		Key:         aws.String(res.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload audit archive: %w", err)
	}
	return res, nil
}

func (a *Archiver) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.S3RootUser,
			a.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}
