// Package models - bookmark.go defines the Bookmark model linking a user to a
// catalog skill by slug.
package models

import "time"

// Bookmark represents one user's bookmark of a catalog skill
type Bookmark struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SkillSlug string    `db:"skill_slug" json:"skill_slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookmarkedSkill is a bookmark joined with its catalog entry, ordered by when
// the bookmark was created.
type BookmarkedSkill struct {
	Skill
	BookmarkedAt time.Time `db:"bookmarked_at" json:"bookmarked_at"`
}
