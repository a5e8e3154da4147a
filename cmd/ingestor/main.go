package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/nearme/internal/adapters/postgres"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Sources []SourceEntry `json:"sources"`
}

// SourceEntry is one GeoJSON point-of-interest file, local or remote.
type SourceEntry struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

const batchSize = 500

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("nearme-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	repo := postgres.NewPlaceRepo(db, cfg.Gateway.Limit)

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("NearMe place ingestor: %d sources", len(manifest.Sources))

	// Optional CLI arg: comma-separated source names.
	filter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			filter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent sources

	for _, src := range manifest.Sources {
		if len(filter) > 0 && !filter[src.Name] {
			continue
		}

		wg.Add(1)
		go func(s SourceEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestSource(ctx, repo, client, s); err != nil {
				log.Printf("ERROR [%s]: %v", s.Name, err)
			}
		}(src)
	}

	wg.Wait()
	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-source ingestion
// ---------------------------------------------------------------------------

func ingestSource(ctx context.Context, repo ports.PlaceRepository, client *http.Client, src SourceEntry) error {
	body, err := readSource(ctx, client, src)
	if err != nil {
		return err
	}

	places, skipped, err := decodePlaces(body)
	if err != nil {
		return err
	}
	log.Printf("[%s] %d places, %d features skipped", src.Name, len(places), skipped)

	for start := 0; start < len(places); start += batchSize {
		end := min(start+batchSize, len(places))
		if err := repo.UpsertBatch(ctx, places[start:end], src.Name); err != nil {
			return fmt.Errorf("upsert %d-%d: %w", start, end, err)
		}
	}
	log.Printf("[%s] done", src.Name)
	return nil
}

func readSource(ctx context.Context, client *http.Client, src SourceEntry) ([]byte, error) {
	if src.Path != "" {
		return os.ReadFile(src.Path)
	}
	if src.URL == "" {
		return nil, fmt.Errorf("source %q has neither url nor path", src.Name)
	}

	log.Printf("[%s] downloading %s", src.Name, src.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src.URL)
	}
	return io.ReadAll(resp.Body)
}
