// bookmark_repository.go implements BookmarkRepository, a per-user ledger of
// bookmarked catalog slugs. Add and Remove are idempotent.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clawhub/clawhub/internal/db/models"
)

// BookmarkRepository handles database operations for bookmarks
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Add bookmarks a catalog slug for a user. Re-adding an existing bookmark is
// a no-op; bookmarking an unknown slug fails the FK and returns ErrNotFound.
func (r *BookmarkRepository) Add(ctx context.Context, userID, skillSlug string) error {
	query := `
		INSERT INTO bookmarks (user_id, skill_slug)
		VALUES ($1, $2)
		ON CONFLICT (user_id, skill_slug) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, userID, skillSlug)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add bookmark: %w", err)
	}

	return nil
}

// Remove deletes a bookmark; removing one that does not exist is a no-op
func (r *BookmarkRepository) Remove(ctx context.Context, userID, skillSlug string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND skill_slug = $2`, userID, skillSlug)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}

	return nil
}

// Exists reports whether the user has bookmarked the slug
func (r *BookmarkRepository) Exists(ctx context.Context, userID, skillSlug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowxContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookmarks WHERE user_id = $1 AND skill_slug = $2)`,
		userID, skillSlug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}

	return exists, nil
}

// ListByUser returns the user's bookmarked skills, most recently bookmarked
// first. Skills removed from the catalog disappear from the list via the FK
// cascade, so no dangling slugs are served.
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID string) ([]*models.BookmarkedSkill, error) {
	query := `
		SELECT s.id, s.slug, s.name, s.author, s.description, s.downloads, s.installs,
		       s.stars, s.view_count, s.tags, s.categories, s.github_url, s.version,
		       s.url, s.created_at, s.updated_at, b.created_at AS bookmarked_at
		FROM bookmarks b
		JOIN skills s ON b.skill_slug = s.slug
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC
	`

	var skills []*models.BookmarkedSkill
	if err := r.db.SelectContext(ctx, &skills, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	return skills, nil
}
