// Package catalog holds the query model for the public skill catalog and the
// keyword rules used to infer categories for imported skills.
package catalog

// DefaultLimit and MaxLimit bound the page size of catalog queries.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Sort keys accepted by the catalog. "downloads" is a legacy alias for
// "views"; "installs" orders by the imported install counter, which is
// static between imports but remains a distinct metric.
const (
	SortViews    = "views"
	SortInstalls = "installs"
	SortStars    = "stars"
	SortNewest   = "newest"
	SortName     = "name"
)

// Query describes one catalog listing request after parameter parsing.
// Filters are conjunctive: a skill must match every non-empty field.
type Query struct {
	Search   string
	Category string
	Tag      string
	Sort     string
	Limit    int
	Offset   int
}

// Normalize clamps paging values into range and canonicalizes the sort key.
// Unknown sort keys fall back to the popularity ordering rather than erroring.
func (q *Query) Normalize() {
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch q.Sort {
	case SortViews, SortInstalls, SortStars, SortNewest, SortName:
	case "downloads", "popular":
		q.Sort = SortViews
	case "recent", "created":
		q.Sort = SortNewest
	case "rating":
		q.Sort = SortStars
	default:
		q.Sort = SortViews
	}
}

// OrderBy returns the ORDER BY clause for the normalized sort key. Every
// ordering carries an id tiebreak so pagination is stable across requests.
// Only whitelisted clauses are returned; the result is safe to interpolate.
func (q *Query) OrderBy() string {
	switch q.Sort {
	case SortInstalls:
		return "installs DESC, id ASC"
	case SortStars:
		return "stars DESC, id ASC"
	case SortNewest:
		return "created_at DESC, id ASC"
	case SortName:
		return "name ASC, id ASC"
	default:
		return "view_count DESC, id ASC"
	}
}
