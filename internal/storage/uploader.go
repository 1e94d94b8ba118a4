package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadInput describes one object to store under Folder.
type UploadInput struct {
	Folder   string
	Data     []byte
	MIMEType string
}

// UploadResult is where the object landed.
type UploadResult struct {
	Key   string
	URL   string
	Bytes int64
}

// Uploader is the object storage contract used by the worker. Any error is
// handled like a generation failure.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
}

// GeneratedFolder is the folder generated images for an account go to.
func GeneratedFolder(accountID string) string {
	return "generated/" + strings.TrimSpace(accountID)
}

var preferredExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// objectKey builds a fresh key inside folder with an extension matching mimeType.
func objectKey(folder, mimeType string) (string, error) {
	if len(strings.TrimSpace(folder)) == 0 {
		return "", errors.New("storage: folder is required")
	}
	ext := extensionFor(mimeType)
	key, err := sanitizeKey(path.Join(folder, uuid.NewString()+ext))
	if err != nil {
		return "", fmt.Errorf("storage: object key: %w", err)
	}
	return key, nil
}

func extensionFor(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := preferredExt[mt]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
