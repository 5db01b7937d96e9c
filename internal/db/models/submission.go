// Package models - submission.go defines the UserSkill model for user-submitted
// skills awaiting moderation, and the status values of the moderation workflow.
package models

import (
	"time"

	"github.com/lib/pq"
)

// Submission status values. A submission starts pending and ends in exactly
// one of the terminal states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// UserSkill represents a user-submitted skill in the moderation queue
type UserSkill struct {
	ID              int64          `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	Slug            string         `db:"slug" json:"slug"`
	Name            string         `db:"name" json:"name"`
	Author          string         `db:"author" json:"author"`
	Description     string         `db:"description" json:"description"`
	GitHubURL       *string        `db:"github_url" json:"github_url,omitempty"`
	Version         string         `db:"version" json:"version"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	Categories      pq.StringArray `db:"categories" json:"categories"`
	Status          string         `db:"status" json:"status"`
	ModerationNotes *string        `db:"moderation_notes" json:"moderation_notes,omitempty"`
	ModeratorID     *string        `db:"moderator_id" json:"moderator_id,omitempty"`
	ModeratedAt     *time.Time     `db:"moderated_at" json:"moderated_at,omitempty"`
	SubmittedAt     time.Time      `db:"submitted_at" json:"submitted_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
	// Joined fields (not stored in user_skills table)
	SubmitterEmail *string `db:"submitter_email" json:"submitter_email,omitempty"`
}

// IsPending reports whether the submission is still editable and decidable
func (s *UserSkill) IsPending() bool {
	return s.Status == StatusPending
}
