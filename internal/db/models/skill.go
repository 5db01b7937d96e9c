// Package models - skill.go defines the Skill model representing a published
// entry in the public catalog, plus the public projection returned by the API.
package models

import (
	"math"
	"time"

	"github.com/lib/pq"
)

// Skill represents a published skill in the public catalog
type Skill struct {
	ID          int64          `db:"id" json:"id"`
	Slug        string         `db:"slug" json:"slug"`
	Name        string         `db:"name" json:"name"`
	Author      string         `db:"author" json:"author"`
	Description string         `db:"description" json:"description"`
	Downloads   int64          `db:"downloads" json:"downloads"`
	Installs    int64          `db:"installs" json:"installs"`
	Stars       int            `db:"stars" json:"stars"`
	ViewCount   int64          `db:"view_count" json:"view_count"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Categories  pq.StringArray `db:"categories" json:"categories"`
	GitHubURL   *string        `db:"github_url" json:"github_url,omitempty"`
	Version     string         `db:"version" json:"version"`
	URL         string         `db:"url" json:"url"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Rating derives a 0-5 star rating (one decimal place) from the raw GitHub
// star count. Zero stars means unrated, not a 0.0 rating.
func (s *Skill) Rating() float64 {
	if s.Stars <= 0 {
		return 0
	}
	r := math.Round(float64(s.Stars)/10.0*5.0*10) / 10
	if r > 5 {
		return 5
	}
	return r
}

// SkillView is the public projection of a Skill served by the catalog API.
// Tags and categories are always non-nil so clients never see JSON null.
type SkillView struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Rating      float64   `json:"rating"`
	Stars       int       `json:"stars"`
	Downloads   int64     `json:"downloads"`
	Installs    int64     `json:"installs"`
	ViewCount   int64     `json:"view_count"`
	Tags        []string  `json:"tags"`
	Categories  []string  `json:"categories"`
	GitHubURL   *string   `json:"github_url,omitempty"`
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicView projects the skill into its API shape
func (s *Skill) PublicView() SkillView {
	tags := []string(s.Tags)
	if tags == nil {
		tags = []string{}
	}
	categories := []string(s.Categories)
	if categories == nil {
		categories = []string{}
	}
	return SkillView{
		ID:          s.ID,
		Slug:        s.Slug,
		Name:        s.Name,
		Author:      s.Author,
		Description: s.Description,
		Rating:      s.Rating(),
		Stars:       s.Stars,
		Downloads:   s.Downloads,
		Installs:    s.Installs,
		ViewCount:   s.ViewCount,
		Tags:        tags,
		Categories:  categories,
		GitHubURL:   s.GitHubURL,
		Version:     s.Version,
		URL:         s.URL,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// CategoryCount is a facet row: one category and how many skills carry it
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int64  `db:"count" json:"count"`
}

// TagCount is a facet row: one tag and how many skills carry it
type TagCount struct {
	Tag   string `db:"tag" json:"tag"`
	Count int64  `db:"count" json:"count"`
}

// CatalogStats is the aggregate snapshot served by the stats endpoint
type CatalogStats struct {
	TotalSkills   int64 `db:"total_skills" json:"total_skills"`
	TotalViews    int64 `db:"total_views" json:"total_views"`
	TotalInstalls int64 `db:"total_installs" json:"total_installs"`
}
