package moderation

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clawhub/clawhub/internal/db/repositories"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errDB = errors.New("db error")

// ListPending joins the submitter email onto the submission row
var pendingCols = []string{
	"id", "user_id", "slug", "name", "author", "description", "github_url",
	"version", "tags", "categories", "status", "moderation_notes",
	"moderator_id", "moderated_at", "submitted_at", "updated_at",
	"submitter_email",
}

// Decide RETURNING column order
var decisionCols = []string{
	"id", "user_id", "slug", "name", "author", "description", "github_url",
	"version", "tags", "categories", "status", "moderation_notes",
	"moderator_id", "moderated_at", "submitted_at", "updated_at",
}

func samplePendingRows() *sqlmock.Rows {
	return sqlmock.NewRows(pendingCols).
		AddRow(int64(10), "user-1", "pdf-tools", "PDF Tools", "Alice", "Manipulate PDF files",
			nil, "1.0.0", "{pdf}", "{productivity}", "pending", nil, nil, nil,
			time.Now(), time.Now(), "alice@example.com")
}

func sampleDecidedRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(decisionCols).
		AddRow(int64(10), "user-1", "pdf-tools", "PDF Tools", "Alice", "Manipulate PDF files",
			nil, "1.0.0", "{pdf}", "{productivity}", status, "looks good", "mod-1", now,
			now, now)
}

func newModerationRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, _ := sqlmock.New()
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(repositories.NewSubmissionRepository(sqlx.NewDb(db, "sqlmock"), "https://clawhub.dev/skills"))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "mod-1")
		c.Next()
	})
	r.GET("/api/v1/moderation/pending", h.ListPending)
	r.POST("/api/v1/moderation/:id", h.Decide)
	return mock, r
}

func doDecision(r *gin.Engine, id string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/moderation/"+id, &buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// ListPending
// ---------------------------------------------------------------------------

func TestListPending_Success(t *testing.T) {
	mock, r := newModerationRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM user_skills WHERE status").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT us\\..*FROM user_skills us.*JOIN users").
		WillReturnRows(samplePendingRows())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/moderation/pending", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Submissions []struct {
			Slug           string  `json:"slug"`
			SubmitterEmail *string `json:"submitter_email"`
		} `json:"submissions"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Submissions) != 1 || resp.Submissions[0].Slug != "pdf-tools" {
		t.Errorf("unexpected submissions: %+v", resp.Submissions)
	}
	if resp.Submissions[0].SubmitterEmail == nil || *resp.Submissions[0].SubmitterEmail != "alice@example.com" {
		t.Error("submitter_email should be joined into the queue listing")
	}
	if resp.Meta.Total != 1 {
		t.Errorf("meta.total = %d, want 1", resp.Meta.Total)
	}
}

func TestListPending_DBError(t *testing.T) {
	mock, r := newModerationRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM user_skills WHERE status").WillReturnError(errDB)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/moderation/pending", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Decide
// ---------------------------------------------------------------------------

func TestDecide_Approve(t *testing.T) {
	mock, r := newModerationRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE user_skills").WillReturnRows(sampleDecidedRow("approved"))
	mock.ExpectExec("INSERT INTO skills").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := doDecision(r, "10", map[string]interface{}{"action": "approve", "notes": "looks good"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Submission struct {
			Status string `json:"status"`
		} `json:"submission"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Submission.Status != "approved" {
		t.Errorf("status = %q, want approved", resp.Submission.Status)
	}
}

func TestDecide_Reject(t *testing.T) {
	mock, r := newModerationRouter(t)

	// Rejection updates the submission but never touches the skills table.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE user_skills").WillReturnRows(sampleDecidedRow("rejected"))
	mock.ExpectCommit()

	w := doDecision(r, "10", map[string]interface{}{"action": "reject"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
}

func TestDecide_InvalidAction(t *testing.T) {
	_, r := newModerationRouter(t)

	w := doDecision(r, "10", map[string]interface{}{"action": "maybe"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDecide_NotFound(t *testing.T) {
	mock, r := newModerationRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE user_skills").WillReturnRows(sqlmock.NewRows(decisionCols))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	w := doDecision(r, "10", map[string]interface{}{"action": "approve"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body: %s", w.Code, w.Body.String())
	}
}

func TestDecide_AlreadyDecided(t *testing.T) {
	mock, r := newModerationRouter(t)

	// The row exists but is no longer pending; the conditional UPDATE loses.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE user_skills").WillReturnRows(sqlmock.NewRows(decisionCols))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	w := doDecision(r, "10", map[string]interface{}{"action": "reject"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("invalid state")) {
		t.Errorf("body should report invalid state, got: %s", w.Body.String())
	}
}

func TestDecide_SlugConflictRollsBack(t *testing.T) {
	mock, r := newModerationRouter(t)

	// Promotion hits an existing catalog slug; the whole decision rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE user_skills").WillReturnRows(sampleDecidedRow("approved"))
	mock.ExpectExec("INSERT INTO skills").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	w := doDecision(r, "10", map[string]interface{}{"action": "approve"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409; body: %s", w.Code, w.Body.String())
	}
}

func TestDecide_InvalidID(t *testing.T) {
	_, r := newModerationRouter(t)

	w := doDecision(r, "abc", map[string]interface{}{"action": "approve"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
