// submission_repository.go implements SubmissionRepository, covering the skill
// moderation workflow: user CRUD over pending submissions, the pending queue,
// and the transactional approve/reject decision that promotes approved skills
// into the public catalog.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clawhub/clawhub/internal/db/models"
)

// DecisionAction is the moderator's verdict on a pending submission
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// SubmissionRepository handles database operations for the moderation queue
type SubmissionRepository struct {
	db *sqlx.DB
	// publicBaseURL is the prefix for promoted catalog entry URLs,
	// e.g. https://clawhub.ai
	publicBaseURL string
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sqlx.DB, publicBaseURL string) *SubmissionRepository {
	return &SubmissionRepository{db: db, publicBaseURL: publicBaseURL}
}

// Create inserts a new pending submission
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.UserSkill) error {
	query := `
		INSERT INTO user_skills (user_id, slug, name, author, description, github_url,
		                         version, tags, categories)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, submitted_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		sub.UserID,
		sub.Slug,
		sub.Name,
		sub.Author,
		sub.Description,
		sub.GitHubURL,
		sub.Version,
		sub.Tags,
		sub.Categories,
	).Scan(&sub.ID, &sub.Status, &sub.SubmittedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetByID retrieves a submission by id
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*models.UserSkill, error) {
	sub := &models.UserSkill{}
	err := r.db.GetContext(ctx, sub, `SELECT * FROM user_skills WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return sub, nil
}

// ListByUser returns all submissions owned by a user, newest first
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserSkill, error) {
	var subs []*models.UserSkill
	err := r.db.SelectContext(ctx, &subs,
		`SELECT * FROM user_skills WHERE user_id = $1 ORDER BY submitted_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return subs, nil
}

// Update edits a submission's user-supplied fields. The gate in the WHERE
// clause means owners can only edit their own still-pending rows; when zero
// rows match, classify() works out which condition failed.
func (r *SubmissionRepository) Update(ctx context.Context, userID string, sub *models.UserSkill) error {
	query := `
		UPDATE user_skills
		SET name = $1, description = $2, github_url = $3, version = $4,
		    tags = $5, categories = $6, updated_at = NOW()
		WHERE id = $7 AND user_id = $8 AND status = 'pending'
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		sub.Name,
		sub.Description,
		sub.GitHubURL,
		sub.Version,
		sub.Tags,
		sub.Categories,
		sub.ID,
		userID,
	).Scan(&sub.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return r.classify(ctx, sub.ID, userID)
		}
		return fmt.Errorf("failed to update submission: %w", err)
	}

	return nil
}

// Delete removes a submission; same ownership and pending gate as Update
func (r *SubmissionRepository) Delete(ctx context.Context, userID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_skills WHERE id = $1 AND user_id = $2 AND status = 'pending'`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.classify(ctx, id, userID)
	}

	return nil
}

// classify explains a zero-row mutation: the row is missing, owned by someone
// else, or no longer pending.
func (r *SubmissionRepository) classify(ctx context.Context, id int64, userID string) error {
	var owner, status string
	err := r.db.QueryRowxContext(ctx,
		`SELECT user_id, status FROM user_skills WHERE id = $1`, id).Scan(&owner, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to classify submission state: %w", err)
	}
	if owner != userID {
		return ErrForbidden
	}
	if status != models.StatusPending {
		return ErrInvalidState
	}
	return ErrNotFound
}

// ListPending returns the moderation queue, oldest submission first, with the
// submitter's email joined in for the moderation UI.
func (r *SubmissionRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.UserSkill, int, error) {
	var total int
	err := r.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM user_skills WHERE status = 'pending'`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}

	query := `
		SELECT us.*, u.email AS submitter_email
		FROM user_skills us
		JOIN users u ON us.user_id = u.id
		WHERE us.status = 'pending'
		ORDER BY us.submitted_at ASC, us.id ASC
		LIMIT $1 OFFSET $2
	`

	var subs []*models.UserSkill
	if err := r.db.SelectContext(ctx, &subs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	return subs, total, nil
}

// Decide applies a moderator's verdict inside a single transaction. The
// conditional UPDATE guarantees at most one caller wins when two moderators
// race on the same submission; the loser gets ErrInvalidState (or ErrNotFound
// when the row never existed). On approval the submission is promoted into
// the public catalog; a slug collision rolls everything back with ErrConflict,
// leaving the submission pending.
func (r *SubmissionRepository) Decide(ctx context.Context, moderatorID string, id int64, action DecisionAction, notes *string) (*models.UserSkill, error) {
	var status string
	switch action {
	case ActionApprove:
		status = models.StatusApproved
	case ActionReject:
		status = models.StatusRejected
	default:
		return nil, fmt.Errorf("unknown decision action: %s", action)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE user_skills
		SET status = $1, moderation_notes = $2, moderator_id = $3,
		    moderated_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
		RETURNING id, user_id, slug, name, author, description, github_url, version,
		          tags, categories, status, moderation_notes, moderator_id,
		          moderated_at, submitted_at, updated_at
	`

	sub := &models.UserSkill{}
	err = tx.QueryRowxContext(ctx, query, status, notes, moderatorID, id).StructScan(sub)
	if err != nil {
		if err == sql.ErrNoRows {
			var exists bool
			if checkErr := tx.QueryRowxContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM user_skills WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("failed to check submission existence: %w", checkErr)
			}
			if !exists {
				return nil, ErrNotFound
			}
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to decide submission: %w", err)
	}

	if action == ActionApprove {
		insert := `
			INSERT INTO skills (slug, name, author, description, tags, categories,
			                    github_url, version, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		url := fmt.Sprintf("%s/%s/%s", r.publicBaseURL, sub.Author, sub.Slug)
		_, err = tx.ExecContext(ctx, insert,
			sub.Slug,
			sub.Name,
			sub.Author,
			sub.Description,
			sub.Tags,
			sub.Categories,
			sub.GitHubURL,
			sub.Version,
			url,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrConflict
			}
			return nil, fmt.Errorf("failed to promote submission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decision: %w", err)
	}

	return sub, nil
}
