package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lexindex/internal/chunker"
	"lexindex/internal/config"
	"lexindex/internal/docstore"
	"lexindex/internal/domain"
	"lexindex/internal/embedding"
	"lexindex/internal/embedding/openai"
	"lexindex/internal/embedding/static"
	"lexindex/internal/loader"
	"lexindex/internal/service"
	"lexindex/internal/vectorstore/memory"
	"lexindex/internal/vectorstore/qdrant"
)

// app holds the explicitly constructed components for one process.
// Everything is built once here and passed by reference; there is no
// global client state.
type app struct {
	svc   *service.IndexService
	docs  domain.DocumentStore
	close func()
}

func buildApp(cfg *config.AppConfig) (*app, error) {
	ld := loader.New(loader.Config{
		PDFPageWindow: cfg.Loader.PDFPageWindow,
		S3:            buildS3(cfg.Loader.S3),
	})

	ck := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, cfg.Chunker.MaxChunksPerDocument)

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var index domain.VectorIndex
	switch cfg.VectorStore.Type {
	case "memory", "":
		index = memory.NewIndex()
	case "qdrant":
		index = qdrant.NewIndex(qdrant.Config{
			URL:             cfg.VectorStore.URL,
			APIKey:          os.Getenv(cfg.VectorStore.APIKeyEnv),
			Collection:      cfg.VectorStore.Collection,
			Distance:        cfg.VectorStore.Distance,
			Timeout:         time.Duration(cfg.VectorStore.TimeoutSecs) * time.Second,
			UpsertBatchSize: cfg.VectorStore.UpsertBatchSize,
		})
	default:
		return nil, fmt.Errorf("unknown vector store type: %s", cfg.VectorStore.Type)
	}

	var docs domain.DocumentStore
	closeFn := func() {}
	switch cfg.DocStore.Type {
	case "sqlite", "":
		store, err := docstore.OpenSQLite(cfg.DocStore.Path)
		if err != nil {
			return nil, err
		}
		docs = store
		closeFn = func() { _ = store.Close() }
	case "memory":
		docs = docstore.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown doc store type: %s", cfg.DocStore.Type)
	}

	svc := service.New(ld, ck, emb, index, docs, service.Config{
		EmbeddingBatchSize: cfg.Embedder.BatchSize,
		EmbedConcurrency:   cfg.Retry.EmbedConcurrency,
		Retry: service.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		},
	})
	return &app{svc: svc, docs: docs, close: closeFn}, nil
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "static", "":
		emb = static.New(cfg.Dimension)
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:       cfg.BaseURL,
			APIKeyEnv:     cfg.APIKeyEnv,
			Model:         cfg.Model,
			Dimension:     cfg.Dimension,
			MaxInputChars: cfg.MaxInputChars,
			Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
			RatePerSec:    cfg.RatePerSec,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", cfg.Type)
	}
	return embedding.NewCached(emb, cfg.CacheSize), nil
}

// buildS3 returns nil when no s3 section is configured; the loader
// then degrades s3:// locators to placeholder content.
func buildS3(cfg *config.S3Config) *minio.Client {
	if cfg == nil || cfg.Endpoint == "" {
		return nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(cfg.AccessKeyEnv), os.Getenv(cfg.SecretKeyEnv), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		slog.Warn("s3 client unavailable", "endpoint", cfg.Endpoint, "cause", err)
		return nil
	}
	return client
}
