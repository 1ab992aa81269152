package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores organization assets (logos) in object storage.
type StorageService interface {
	UploadLogo(ctx context.Context, organizationID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error)
	LogoURL(organizationID uuid.UUID, expiry time.Duration) (string, error)
	DeleteLogo(ctx context.Context, organizationID uuid.UUID) error
	EnsureBucket(ctx context.Context) error
}

type storageService struct {
	client *minio.Client
	bucket string
}

func NewStorageService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &storageService{client: client, bucket: bucket}, nil
}

func logoObjectName(organizationID uuid.UUID) string {
	return fmt.Sprintf("logos/%s", organizationID)
}

func (s *storageService) UploadLogo(ctx context.Context, organizationID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	objectName := logoObjectName(organizationID)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return objectName, nil
}

func (s *storageService) LogoURL(organizationID uuid.UUID, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(context.Background(), s.bucket, logoObjectName(organizationID), expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (s *storageService) DeleteLogo(ctx context.Context, organizationID uuid.UUID) error {
	return s.client.RemoveObject(ctx, s.bucket, logoObjectName(organizationID), minio.RemoveObjectOptions{})
}

func (s *storageService) EnsureBucket(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
