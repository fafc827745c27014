package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// loadRemote fetches an s3://bucket/key object. Text objects are read
// directly; PDF objects are staged to a temp file first so the
// page-window extractor can seek through them.
func (l *Loader) loadRemote(ctx context.Context, locator string) (string, error) {
	if l.s3 == nil {
		return "", errors.New("no s3 client configured")
	}
	bucket, key, err := splitS3Locator(locator)
	if err != nil {
		return "", err
	}
	obj, err := l.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = obj.Close() }()

	if strings.EqualFold(filepath.Ext(key), ".pdf") {
		return l.extractRemotePDF(obj)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Loader) extractRemotePDF(obj io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "lexindex-*.pdf")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, obj); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return l.extractPDF(tmp.Name())
}

func splitS3Locator(locator string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(locator, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 locator: %s", locator)
	}
	return bucket, key, nil
}
