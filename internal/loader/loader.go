package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Loader resolves source locators to raw text. Supported sources are
// local text and PDF files and s3:// object locators. Anything that
// cannot be resolved or decoded degrades to deterministic placeholder
// content derived from the locator basename; Load never fails.
type Loader struct {
	pageWindow int
	s3         *minio.Client
	log        *slog.Logger
}

// Config configures a Loader.
type Config struct {
	// PDFPageWindow bounds how many PDF pages are decoded per window.
	PDFPageWindow int
	// S3 is the client used for s3:// locators. May be nil, in which
	// case remote locators degrade to placeholder content.
	S3 *minio.Client
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// New creates a Loader from explicit configuration.
func New(cfg Config) *Loader {
	if cfg.PDFPageWindow <= 0 {
		cfg.PDFPageWindow = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{pageWindow: cfg.PDFPageWindow, s3: cfg.S3, log: cfg.Logger}
}

// Load resolves the locator to text. Read and format failures are
// recovered locally via placeholder content, never surfaced as errors.
func (l *Loader) Load(ctx context.Context, sourceLocator string) (string, error) {
	text, err := l.load(ctx, sourceLocator)
	if err != nil {
		l.log.Warn("source unavailable, using placeholder content",
			"locator", sourceLocator, "cause", err)
		return Placeholder(sourceLocator), nil
	}
	if strings.TrimSpace(text) == "" {
		return Placeholder(sourceLocator), nil
	}
	return text, nil
}

func (l *Loader) load(ctx context.Context, locator string) (string, error) {
	if strings.HasPrefix(locator, "s3://") {
		return l.loadRemote(ctx, locator)
	}
	switch strings.ToLower(filepath.Ext(locator)) {
	case ".pdf":
		return l.extractPDF(locator)
	case ".txt", ".md", ".text":
		data, err := os.ReadFile(locator)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", filepath.Ext(locator))
	}
}

// Placeholder builds the deterministic stand-in text for a locator
// whose content could not be loaded. It always contains the locator's
// basename so degraded documents stay identifiable in search results.
func Placeholder(sourceLocator string) string {
	base := filepath.Base(strings.TrimSuffix(sourceLocator, "/"))
	if base == "" || base == "." {
		base = "unknown-source"
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = base
	}
	return fmt.Sprintf(
		"Placeholder content for %s. The source %s could not be loaded, "+
			"so this synthetic text stands in for the document body. "+
			"It covers the document titled %s and exists only so that "+
			"chunking, embedding and retrieval remain demonstrable "+
			"without the original source material.",
		base, base, name)
}
