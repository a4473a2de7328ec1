package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alan-mat/askdoc/internal/provider"
	"github.com/alan-mat/askdoc/internal/vector"
)

const importConcurrency = 4

type importDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// runImport embeds the given documents and upserts them into the
// vector store, creating the collection first if it does not exist.
// Accepts either a directory of .txt/.md files (title taken from the
// file name) or a JSON manifest of {title, content} objects.
func runImport(a any) error {
	cmdArgs := a.(*importCmd)

	conf, err := ReadConfig(cmdArgs.Config)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	collection := cmdArgs.Collection
	if collection == "" {
		collection = conf.VectorStore.Collection
	}

	docs, err := loadDocuments(cmdArgs.Path)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found at '%s'", cmdArgs.Path)
	}

	ctx := context.Background()
	store, err := newStore(ctx, conf)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := provider.NewEmbedder(conf.Embedding.Provider, provider.EmbedderConfig{
		URL:        conf.Embedding.URL,
		Model:      conf.Embedding.Model,
		Dimensions: conf.Embedding.Dimensions,
		Timeout:    time.Duration(conf.Embedding.TimeoutSeconds) * time.Second,
		APIKey:     conf.Embedding.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		err := store.CreateCollection(ctx, vector.Collection{
			Name:       collection,
			Dimensions: conf.Embedding.Dimensions,
		})
		if err != nil {
			return fmt.Errorf("failed to create collection '%s': %w", collection, err)
		}
		slog.Info("created collection", "name", collection, "dimensions", conf.Embedding.Dimensions)
	}

	var mu sync.Mutex
	records := make([]*vector.Record, 0, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, doc := range docs {
		g.Go(func() error {
			embedding, err := embedder.EmbedQuery(gctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed '%s': %w", doc.Title, err)
			}

			mu.Lock()
			records = append(records, &vector.Record{
				ID:        uuid.NewString(),
				Title:     doc.Title,
				Content:   doc.Content,
				Embedding: embedding,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := store.Upsert(ctx, collection, records); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}

	slog.Info("import complete", "collection", collection, "documents", len(records))
	return nil
}

func loadDocuments(path string) ([]importDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var docs []importDocument
		if err := json.Unmarshal(file, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse manifest '%s': %w", path, err)
		}
		return docs, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var docs []importDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".txt" && ext != ".md" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, importDocument{
			Title:   strings.TrimSuffix(entry.Name(), ext),
			Content: string(content),
		})
	}
	return docs, nil
}
