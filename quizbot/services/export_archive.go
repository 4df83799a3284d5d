package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportArchiveService keeps a copy of every generated rating export in
// S3-compatible object storage, so past standings stay retrievable after the
// chat history is gone. Archiving is best effort and never blocks a reply.
type ExportArchiveService struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

func NewExportArchiveService(key, secret, endpoint, region, bucket, prefix string) (*ExportArchiveService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	return &ExportArchiveService{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: slog.With(slog.String("service", "export_archive")),
	}, nil
}

// Archive stores one export under a timestamped key and returns the key.
func (s *ExportArchiveService) Archive(ctx context.Context, label string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s/%s.xlsx", s.prefix, label, time.Now().Format("2006-01-02T15-04-05"))
	contentType := xlsxContentType

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive export %s: %w", key, err)
	}

	s.logger.Info("Export archived",
		slog.String("key", key),
		slog.Int("size", len(data)))
	return key, nil
}
