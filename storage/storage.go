// Package storage keeps uploaded post images and user avatars.
package storage

import (
	"context"
	"fmt"
	"io"

	"blogapi/config"
)

// ImageStore persists an uploaded image and returns the URL it is served from.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
}

// New builds the image store selected by cfg.UploadBackend.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	switch cfg.UploadBackend {
	case config.UploadDisk:
		return NewDisk(cfg.UploadDir)
	case config.UploadCloudinary:
		return NewCloudinary(cfg.CloudinaryURL)
	case config.UploadMinio:
		return NewMinio(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}
