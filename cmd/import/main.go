// Package main implements the batch catalog importer. It reads a scraped
// skills JSON dump and upserts every entry into the skills table, inferring
// categories for entries that arrived without any. The importer is an
// operator tool and is never part of the serving path.
//
// Usage:
//
//	import <dump.json>
//
// Database connection settings come from the same configuration sources as
// the server binary (CONFIG_PATH / CLAWHUB_* environment variables).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/clawhub/clawhub/internal/catalog"
	"github.com/clawhub/clawhub/internal/config"
	"github.com/clawhub/clawhub/internal/db"
	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
)

// dumpFile mirrors the scraper's output shape.
type dumpFile struct {
	Skills []dumpSkill `json:"skills"`
}

type dumpSkill struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Downloads   int64    `json:"downloads"`
	Installs    int64    `json:"installs"`
	Stars       int      `json:"stars"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	GitHubURL   string   `json:"github_url"`
	Version     string   `json:"version"`
	URL         string   `json:"url"`
}

const batchSize = 100

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <dump.json>", os.Args[0])
	}
	dumpPath := os.Args[1]

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	raw, err := os.ReadFile(dumpPath) // #nosec G304 -- path is an operator-supplied CLI argument
	if err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}

	var dump dumpFile
	if err := json.Unmarshal(raw, &dump); err != nil {
		return fmt.Errorf("failed to parse dump: %w", err)
	}
	if len(dump.Skills) == 0 {
		return fmt.Errorf("dump contains no skills")
	}
	log.Printf("Importing %d skills from %s", len(dump.Skills), dumpPath)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repositories.NewSkillRepository(database)
	ctx := context.Background()
	start := time.Now()

	var imported, skipped, categorized int
	for i, entry := range dump.Skills {
		skill, inferred, err := toSkill(entry)
		if err != nil {
			log.Printf("Skipping entry %d (%s): %v", i, entry.Slug, err)
			skipped++
			continue
		}
		if inferred {
			categorized++
		}

		if err := repo.Upsert(ctx, skill); err != nil {
			return fmt.Errorf("failed to upsert %q: %w", skill.Slug, err)
		}
		imported++

		if imported%batchSize == 0 {
			log.Printf("  %d/%d", imported, len(dump.Skills))
		}
	}

	log.Printf("Import complete: %d imported, %d skipped, %d categorized by keyword rules (%.1fs)",
		imported, skipped, categorized, time.Since(start).Seconds())

	stats, err := repo.Stats(ctx)
	if err != nil {
		log.Printf("Warning: failed to read catalog stats: %v", err)
		return nil
	}
	log.Printf("Catalog now holds %d skills, %d total views, %d total installs",
		stats.TotalSkills, stats.TotalViews, stats.TotalInstalls)
	return nil
}

// toSkill validates a dump entry and converts it into the catalog model.
// The returned bool reports whether categories had to be inferred.
func toSkill(entry dumpSkill) (*models.Skill, bool, error) {
	slug := strings.TrimSpace(entry.Slug)
	name := strings.TrimSpace(entry.Name)
	if slug == "" || name == "" {
		return nil, false, fmt.Errorf("missing slug or name")
	}
	if entry.URL == "" {
		return nil, false, fmt.Errorf("missing url")
	}

	version := entry.Version
	if version == "" {
		version = "1.0.0"
	}

	categories := entry.Categories
	inferred := false
	if len(categories) == 0 {
		categories = catalog.Categorize(name, entry.Description, entry.Tags)
		inferred = true
	}

	skill := &models.Skill{
		Slug:        slug,
		Name:        name,
		Author:      strings.TrimSpace(entry.Author),
		Description: entry.Description,
		Downloads:   entry.Downloads,
		Installs:    entry.Installs,
		Stars:       entry.Stars,
		Tags:        pq.StringArray(entry.Tags),
		Categories:  pq.StringArray(categories),
		Version:     version,
		URL:         entry.URL,
	}
	if entry.GitHubURL != "" {
		skill.GitHubURL = &entry.GitHubURL
	}
	return skill, inferred, nil
}
