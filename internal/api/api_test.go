package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/metrics"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/sse"
	"github.com/starford/acadworld/internal/testutil"
)

// testEnv wires seeded SQLite stores, the explorer and the full server.
func testEnv(t *testing.T) (http.Handler, *sse.Broker) {
	t.Helper()
	st := testutil.SeededStores(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	svc := explorer.NewService(st.Graph, st.Pubs, st.Notes, explorer.WithNotifier(broker))
	return NewServer(svc, broker, metrics.New()), broker
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func facultyPath(name, suffix string) string {
	return "/api/faculty/" + url.PathEscape(name) + suffix
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Stores, 3)
}

func TestListFaculty(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, "/api/faculty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	resp := decode[FacultyListResponse](t, rec)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "Solo Scholar"}, resp.Faculty)
}

func TestFacultyView(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, facultyPath("Ada Lovelace", ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[View](t, rec)
	assert.Equal(t, "Ada Lovelace", v.Faculty)
	require.NotNil(t, v.Profile)
	assert.Equal(t, "https://img.example/ada.png", v.Profile.PhotoURL)
	assert.Len(t, v.TopCoauthors, 2)
	assert.Len(t, v.Papers, 4)
	assert.Empty(t, v.Failures)
}

func TestFacultyViewUnknownHasNullProfile(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, facultyPath("Nobody", ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"profile":null`)
}

func TestTopCoauthors(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, facultyPath("Ada Lovelace", "/coauthors?limit=1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CoauthorsResponse](t, rec)
	require.Len(t, resp.Coauthors, 1)
	assert.Equal(t, "Alan Turing", resp.Coauthors[0].Name)
	assert.Equal(t, int64(2), resp.Coauthors[0].JointPublications)

	rec = do(t, h, http.MethodGet, facultyPath("Ada Lovelace", "/coauthors"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[CoauthorsResponse](t, rec).Coauthors, 2)
}

func TestLimitValidation(t *testing.T) {
	h, _ := testEnv(t)

	for _, target := range []string{
		facultyPath("Ada Lovelace", "/coauthors?limit=0"),
		facultyPath("Ada Lovelace", "/coauthors?limit=abc"),
		"/api/institutes/top?limit=-3",
		"/api/institutes/top?limit=1000",
	} {
		rec := do(t, h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTopInstitutes(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, "/api/institutes/top?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[InstitutesResponse](t, rec)
	require.Len(t, resp.Institutes, 1)
	assert.Equal(t, "University of Illinois", resp.Institutes[0].Name)
	assert.Equal(t, int64(4), resp.Institutes[0].Publications)
}

func TestAddNote(t *testing.T) {
	h, broker := testEnv(t)
	events := broker.Subscribe()
	defer broker.Unsubscribe(events)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/notes"), AddNoteRequest{Text: "  strong theory  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[NotesRefresh](t, rec)
	assert.Equal(t, "written", out.Status)
	require.Len(t, out.Notes, 1)
	assert.Equal(t, "strong theory", out.Notes[0].Text)

	select {
	case msg := <-events:
		assert.Contains(t, string(msg), "event: notes.updated")
		assert.Contains(t, string(msg), `"faculty":"Ada Lovelace"`)
	case <-time.After(time.Second):
		t.Fatal("no notes.updated event")
	}
}

func TestAddBlankNoteIsNoOp(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/notes"), AddNoteRequest{Text: "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[NotesRefresh](t, rec)
	assert.Equal(t, "noop", out.Status)
	assert.Empty(t, out.Notes)
}

func TestAddNoteBadBody(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/notes"), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReviewed(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/reviews"), MarkReviewedRequest{PaperID: 11})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[ReviewsRefresh](t, rec)
	assert.Equal(t, int64(11), out.PaperID)
	assert.Equal(t, []int64{11}, out.ReviewedPaperIDs)

	rec = do(t, h, http.MethodGet, facultyPath("Ada Lovelace", ""), nil)
	v := decode[View](t, rec)
	assert.Equal(t, []int64{11}, v.ReviewedPaperIDs)
}

func TestMarkReviewedErrors(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/reviews"), MarkReviewedRequest{PaperID: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/reviews"), `{"paper_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/reviews"), MarkReviewedRequest{PaperID: 15})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errResponse](t, rec).Kind)

	rec = do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/reviews"), MarkReviewedRequest{PaperID: 4242})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := testEnv(t)

	do(t, h, http.MethodGet, "/api/faculty", nil)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `acadworld_http_requests_total{method="GET",route="/api/faculty",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `acadworld_store_operations_total{operation="list_faculty_names",outcome="ok",store="graph"} 1`)
}

// downExplorer fails every call with an unavailable store.
type downExplorer struct{}

func (downExplorer) FacultyNames(context.Context) ([]string, error) {
	return nil, apperr.E(explorer.StoreGraph, "list_faculty_names", apperr.ErrUnavailable, errors.New("dial tcp: refused"))
}

func (downExplorer) View(_ context.Context, faculty string) *explorer.View {
	return &explorer.View{Faculty: faculty}
}

func (downExplorer) TopCoauthors(context.Context, string, int) ([]models.Coauthor, error) {
	return nil, apperr.E(explorer.StoreGraph, "top_coauthors", apperr.ErrUnavailable, errors.New("refused"))
}

func (downExplorer) TopInstitutes(context.Context, int) ([]models.InstituteCount, error) {
	return nil, apperr.E(explorer.StoreRelational, "top_institutes", apperr.ErrUnavailable, errors.New("refused"))
}

func (downExplorer) AddNote(context.Context, string, string) (*explorer.NotesRefresh, error) {
	return nil, apperr.E(explorer.StoreAnnotations, "add_note", apperr.ErrUnavailable, errors.New("refused"))
}

func (downExplorer) MarkReviewed(context.Context, string, int64) (*explorer.ReviewsRefresh, error) {
	return nil, apperr.E(explorer.StoreRelational, "mark_reviewed", apperr.ErrUnavailable, errors.New("refused"))
}

func (downExplorer) Health(context.Context) []explorer.StoreHealth {
	return []explorer.StoreHealth{{Store: explorer.StoreGraph, Error: "refused"}}
}

func TestUnavailableStoreIs503(t *testing.T) {
	h := NewServer(downExplorer{}, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/faculty", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[errResponse](t, rec).Kind)

	rec = do(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[HealthResponse](t, rec).Status)
}

func TestAddNoteUnavailable(t *testing.T) {
	h := NewServer(downExplorer{}, nil, nil)

	rec := do(t, h, http.MethodPost, facultyPath("Ada Lovelace", "/notes"), AddNoteRequest{Text: "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	// Internal error detail is not leaked.
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestFacultyNameTakenVerbatim(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/faculty/{name}", func(_ http.ResponseWriter, r *http.Request) {
		got = facultyName(r)
	})

	for _, name := range []string{"Ada Lovelace", "Ada%41", " Ada ", "A/B", "Zoë"} {
		got = ""
		req := httptest.NewRequest(http.MethodGet, "/faculty/"+url.PathEscape(name), nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, name, got, "escaped %q", url.PathEscape(name))
	}
}

func TestFacultyViewPaddedNameIsUnknown(t *testing.T) {
	h, _ := testEnv(t)

	rec := do(t, h, http.MethodGet, facultyPath(" Ada Lovelace ", ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[View](t, rec)
	assert.Equal(t, " Ada Lovelace ", v.Faculty)
	assert.Nil(t, v.Profile)
}
