package artifactstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
)

// S3Gateway is the Artifact Store Gateway backend for S3 and S3-compatible
// object stores (MinIO, R2, via Endpoint override), selected by
// ArtifactStoreConfig.Enabled. No third-party S3 client other than
// aws-sdk-go appears anywhere in the corpus, so it is the only candidate.
type S3Gateway struct {
	client  *s3.S3
	bucket  string
	baseURL string
	logger  arbor.ILogger
}

func NewS3Gateway(cfg *common.ArtifactStoreConfig, logger arbor.ILogger) (*S3Gateway, error) {
	if cfg.Bucket == "" {
		return nil, errs.New(errs.KindStorageUnavail, "artifact store bucket not configured")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageUnavail, "creating aws session", err)
	}

	return &S3Gateway{
		client:  s3.New(sess),
		bucket:  cfg.Bucket,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}, nil
}

func (g *S3Gateway) Configured() bool { return g.client != nil && g.bucket != "" }

func (g *S3Gateway) Put(ctx context.Context, key string, data []byte, contentType string, cacheHint string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheHint != "" {
		input.CacheControl = aws.String(cacheHint)
	}

	if _, err := g.client.PutObjectWithContext(ctx, input); err != nil {
		return "", errs.Wrap(errs.KindStorageUnavail, "uploading artifact to s3", err)
	}

	g.logger.Debug().Str("bucket", g.bucket).Str("key", key).Int("bytes", len(data)).Msg("artifact uploaded")

	if g.baseURL != "" {
		return fmt.Sprintf("%s/%s", g.baseURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", g.bucket, key), nil
}

func (g *S3Gateway) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageUnavail, "reading artifact from s3", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageUnavail, "reading artifact body from s3", err)
	}
	return data, nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.Wrap(errs.KindStorageUnavail, "deleting artifact from s3", err)
	}
	return nil
}

func (g *S3Gateway) Close() error { return nil }
