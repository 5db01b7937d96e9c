// skill_repository.go implements SkillRepository, providing catalog queries for
// published skills: search with filters and pagination, detail lookup, view
// counting, related entries, and facet aggregations.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clawhub/clawhub/internal/catalog"
	"github.com/clawhub/clawhub/internal/db/models"
)

// skillColumns is the select list shared by every skill query
const skillColumns = `id, slug, name, author, description, downloads, installs, stars,
	       view_count, tags, categories, github_url, version, url, created_at, updated_at`

// SkillRepository handles database operations for the public catalog
type SkillRepository struct {
	db *sql.DB
}

// NewSkillRepository creates a new skill repository
func NewSkillRepository(db *sql.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

func scanSkill(row interface{ Scan(...interface{}) error }) (*models.Skill, error) {
	s := &models.Skill{}
	err := row.Scan(
		&s.ID,
		&s.Slug,
		&s.Name,
		&s.Author,
		&s.Description,
		&s.Downloads,
		&s.Installs,
		&s.Stars,
		&s.ViewCount,
		&s.Tags,
		&s.Categories,
		&s.GitHubURL,
		&s.Version,
		&s.URL,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// Search returns one page of skills matching the query plus the total match
// count for the same filters. Filters are conjunctive; an empty page with an
// accurate total is a normal result, not an error.
func (r *SkillRepository) Search(ctx context.Context, q catalog.Query) ([]*models.Skill, int, error) {
	whereClause := "WHERE 1=1"
	var args []interface{}
	argCount := 0

	if q.Category != "" {
		argCount++
		whereClause += fmt.Sprintf(" AND $%d = ANY(categories)", argCount)
		args = append(args, q.Category)
	}

	if q.Tag != "" {
		argCount++
		whereClause += fmt.Sprintf(" AND $%d = ANY(tags)", argCount)
		args = append(args, q.Tag)
	}

	if q.Search != "" {
		argCount++
		// Tags match individually so a term cannot span two adjacent tags.
		whereClause += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d OR author ILIKE $%d OR EXISTS (SELECT 1 FROM UNNEST(tags) AS t WHERE t ILIKE $%d))",
			argCount, argCount, argCount, argCount)
		args = append(args, "%"+q.Search+"%")
	}

	// Count total results with the same filters
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM skills %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count skills: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM skills
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, skillColumns, whereClause, q.OrderBy(), argCount+1, argCount+2)

	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search skills: %w", err)
	}
	defer rows.Close()

	var skills []*models.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating skills: %w", err)
	}

	return skills, total, nil
}

// GetBySlug retrieves a single catalog entry
func (r *SkillRepository) GetBySlug(ctx context.Context, slug string) (*models.Skill, error) {
	query := fmt.Sprintf("SELECT %s FROM skills WHERE slug = $1", skillColumns)

	s, err := scanSkill(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}

	return s, nil
}

// IncrementViewCount bumps the view counter for a detail fetch. Concurrent
// increments may race with a concurrent read of the counter; that is fine,
// the counter only needs to be eventually accurate.
func (r *SkillRepository) IncrementViewCount(ctx context.Context, slug string) error {
	query := `UPDATE skills SET view_count = view_count + 1 WHERE slug = $1`

	_, err := r.db.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}

	return nil
}

// ListRelated returns up to limit skills that share a category with, or have
// the same author as, the given skill, excluding the skill itself. Results
// follow the catalog's popularity ordering.
func (r *SkillRepository) ListRelated(ctx context.Context, skill *models.Skill, limit int) ([]*models.Skill, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM skills
		WHERE slug != $1 AND (categories && $2 OR author = $3)
		ORDER BY view_count DESC, id ASC
		LIMIT $4
	`, skillColumns)

	rows, err := r.db.QueryContext(ctx, query, skill.Slug, skill.Categories, skill.Author, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list related skills: %w", err)
	}
	defer rows.Close()

	var skills []*models.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan related skill: %w", err)
		}
		skills = append(skills, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related skills: %w", err)
	}

	return skills, nil
}

// Upsert inserts a skill or refreshes an existing row by slug. Used by the
// batch importer; the serving path never writes through here.
func (r *SkillRepository) Upsert(ctx context.Context, skill *models.Skill) error {
	query := `
		INSERT INTO skills (slug, name, author, description, downloads, installs, stars,
		                    tags, categories, github_url, version, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name,
		    author = EXCLUDED.author,
		    description = EXCLUDED.description,
		    downloads = EXCLUDED.downloads,
		    installs = EXCLUDED.installs,
		    stars = EXCLUDED.stars,
		    tags = EXCLUDED.tags,
		    categories = EXCLUDED.categories,
		    github_url = EXCLUDED.github_url,
		    version = EXCLUDED.version,
		    url = EXCLUDED.url,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		skill.Slug,
		skill.Name,
		skill.Author,
		skill.Description,
		skill.Downloads,
		skill.Installs,
		skill.Stars,
		skill.Tags,
		skill.Categories,
		skill.GitHubURL,
		skill.Version,
		skill.URL,
	).Scan(&skill.ID, &skill.CreatedAt, &skill.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert skill: %w", err)
	}

	return nil
}

// Categories returns every distinct category with its skill count
func (r *SkillRepository) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	// COUNT(DISTINCT id) so a skill with a repeated category still counts once.
	query := `
		SELECT category, COUNT(DISTINCT id) as count
		FROM skills, UNNEST(categories) AS category
		GROUP BY category
		ORDER BY count DESC, category ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var counts []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return counts, nil
}

// Tags returns the most common tags with their skill counts
func (r *SkillRepository) Tags(ctx context.Context, limit int) ([]models.TagCount, error) {
	// COUNT(DISTINCT id) so a skill with a repeated tag still counts once.
	query := `
		SELECT tag, COUNT(DISTINCT id) as count
		FROM skills, UNNEST(tags) AS tag
		GROUP BY tag
		ORDER BY count DESC, tag ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var counts []models.TagCount
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.Tag, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		counts = append(counts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return counts, nil
}

// Stats returns aggregate catalog statistics in a single round trip
func (r *SkillRepository) Stats(ctx context.Context) (*models.CatalogStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(view_count), 0),
		       COALESCE(SUM(installs), 0)
		FROM skills
	`

	stats := &models.CatalogStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalSkills, &stats.TotalViews, &stats.TotalInstalls)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}

	return stats, nil
}
