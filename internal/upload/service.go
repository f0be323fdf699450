// service.go

package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/communityshare/server/internal/config"
)

const presignTTL = 15 * time.Minute

// Service issues presigned S3 URLs so clients upload profile photos
// directly to object storage; the API never proxies file bytes.
type Service struct {
	cfg     config.S3Config
	presign *s3.PresignClient
}

func NewService(ctx context.Context, cfg config.S3Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO and other S3-compatible stores.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Service{
		cfg:     cfg,
		presign: s3.NewPresignClient(client),
	}, nil
}

func storageKey(userID int64) string {
	now := time.Now()
	return fmt.Sprintf(
		"uploads/%d/%d/%02d/%s", userID, now.Year(), now.Month(), uuid.New(),
	)
}

// PresignPut returns the object key and a time-limited URL that accepts
// a single PUT for it.
func (s *Service) PresignPut(
	ctx context.Context,
	userID int64,
) (string, string, error) {
	key := storageKey(userID)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}

	return key, req.URL, nil
}

// PresignGet returns a time-limited download URL for an object key.
func (s *Service) PresignGet(
	ctx context.Context,
	key string,
) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}

	return req.URL, nil
}
