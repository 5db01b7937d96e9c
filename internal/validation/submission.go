// submission.go validates incoming skill submission payloads before they reach
// the moderation queue.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 5000
	maxTags              = 20
	maxCategories        = 10
)

// SubmissionInput is the user-supplied portion of a skill submission
type SubmissionInput struct {
	Name        string
	Description string
	GitHubURL   string
	Version     string
	Tags        []string
	Categories  []string
}

// ValidateSubmission checks a submission payload and returns the first problem
// found. The derived slug is validated too, so names that slugify to nothing
// (e.g. "!!!") are rejected here rather than at the database.
func ValidateSubmission(in SubmissionInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	if err := ValidateSlug(Slugify(name)); err != nil {
		return fmt.Errorf("name does not produce a usable slug: %w", err)
	}
	if len(in.Description) > maxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLength)
	}
	if in.GitHubURL != "" {
		u, err := url.Parse(in.GitHubURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("github_url must be a valid https URL")
		}
	}
	if in.Version != "" {
		if err := ValidateSemver(in.Version); err != nil {
			return err
		}
	}
	if len(in.Tags) > maxTags {
		return fmt.Errorf("too many tags (max %d)", maxTags)
	}
	for _, tag := range in.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags cannot be blank")
		}
	}
	if len(in.Categories) > maxCategories {
		return fmt.Errorf("too many categories (max %d)", maxCategories)
	}
	return nil
}
