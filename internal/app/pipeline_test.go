package app

import (
	"context"
	"testing"

	"brandpost/internal/infra"
	"brandpost/internal/storage"
)

func TestNewUploaderFilesystem(t *testing.T) {
	dir := t.TempDir()
	cfg := &infra.Config{StoragePath: dir, StorageBaseURL: "http://localhost:8080/static"}

	up, staticDir, err := NewUploader(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewUploader error: %v", err)
	}
	if _, ok := up.(*storage.FileStore); !ok {
		t.Fatalf("expected *storage.FileStore, got %T", up)
	}
	if staticDir != dir {
		t.Fatalf("staticDir = %q, want %q", staticDir, dir)
	}
}

func TestNewUploaderS3(t *testing.T) {
	cfg := &infra.Config{
		S3Bucket:    "brandpost-assets",
		S3Region:    "us-east-1",
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "minio",
		S3SecretKey: "minio123",
	}

	up, staticDir, err := NewUploader(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewUploader error: %v", err)
	}
	if _, ok := up.(*storage.S3Store); !ok {
		t.Fatalf("expected *storage.S3Store, got %T", up)
	}
	if staticDir != "" {
		t.Fatalf("staticDir = %q, want empty for s3", staticDir)
	}
}
