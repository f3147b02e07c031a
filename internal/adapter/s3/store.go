// Package s3 writes observation records to an S3 bucket as an audit trail.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

// SinkName labels this sink in logs and metrics.
const SinkName = "s3"

// putObjectAPI is the subset of the S3 client the store uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// AuditStore implements ingest.AuditSink on S3.
type AuditStore struct {
	client putObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// NewAuditStore creates a store writing under prefix in bucket.
func NewAuditStore(client putObjectAPI, bucket, prefix string, logger *slog.Logger) *AuditStore {
	return &AuditStore{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *AuditStore) Name() string { return SinkName }

// Store writes rec as JSON, encrypted at rest with SSE-S3.
func (s *AuditStore) Store(ctx context.Context, rec domain.ObservationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize observation: %w", err)
	}

	key := objectKey(s.prefix, rec)
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	s.logger.Debug("observation stored", "bucket", s.bucket, "key", key)
	return nil
}

// objectKey partitions records by location, then timestamp:
// <prefix>/<lat>_<lon>/<observed_at>.json
func objectKey(prefix string, rec domain.ObservationRecord) string {
	loc := fmt.Sprintf("%.4f_%.4f", rec.Location.Latitude, rec.Location.Longitude)
	return path.Join(prefix, loc, rec.ObservedAt.UTC().Format(time.RFC3339)+".json")
}
