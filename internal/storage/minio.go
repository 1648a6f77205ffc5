package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured 未配置对象存储
var ErrNotConfigured = errors.New("document storage is not configured")

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadTicket 预签名上传地址
type UploadTicket struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentStore 文档存储
type DocumentStore interface {
	PresignUpload(ctx context.Context, objectKey string) (*UploadTicket, error)
}

// MinioStore 基于 S3 兼容存储的实现
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
	expiry time.Duration
}

// NewMinioStore 创建存储客户端，endpoint 为空时返回 ErrNotConfigured
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	expiry := time.Duration(cfg.UploadURLExpiry) * time.Second
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &MinioStore{client: client, bucket: cfg.BucketName, region: cfg.Region, expiry: expiry}, nil
}

// EnsureBucket bucket 不存在时创建
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PresignUpload 生成 PUT 上传地址
func (s *MinioStore) PresignUpload(ctx context.Context, objectKey string) (*UploadTicket, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &UploadTicket{
		UploadURL: u.String(),
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(s.expiry).UTC(),
	}, nil
}

// ObjectKey onboarding/<record>/<section>/<uuid>-<文件名>
func ObjectKey(recordID, section, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	return path.Join("onboarding", recordID, section, uuid.New().String()+"-"+name)
}
