package attachments

import (
	"bytes"
	"context"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists decoded message attachments and returns the key recorded on
// the message row.
type Store interface {
	Save(ctx context.Context, chatID int, name string, data []byte) (string, error)
}

// Config holds the object-store connection parameters.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// NewStore builds an S3-backed store, falling back to a noop store when no
// bucket is configured so the message flow keeps working without object
// storage.
func NewStore(cfg Config, log *zap.SugaredLogger) Store {
	if cfg.Bucket == "" {
		log.Warnw("attachment storage disabled, using noop store")
		return noopStore{}
	}
	return newS3Store(cfg)
}

// S3Store uploads attachments to an S3-compatible bucket (MinIO in dev).
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
}

func newS3Store(cfg Config) *S3Store {
	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}, opts...)

	return &S3Store{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}
}

// Save uploads the attachment under a collision-free per-chat key.
func (s *S3Store) Save(ctx context.Context, chatID int, name string, data []byte) (string, error) {
	key := path.Join("chats", strconv.Itoa(chatID), uuid.NewString(), name)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

type noopStore struct{}

func (noopStore) Save(_ context.Context, chatID int, name string, _ []byte) (string, error) {
	return path.Join("chats", strconv.Itoa(chatID), uuid.NewString(), name), nil
}
