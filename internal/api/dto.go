package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AddNoteRequest is the request body for adding a note. Blank text is
// accepted and reported back as a no-op.
type AddNoteRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

// MarkReviewedRequest is the request body for marking a paper reviewed.
type MarkReviewedRequest struct {
	PaperID int64 `json:"paper_id" validate:"required,gt=0"`
}

// limitQuery is the optional ?limit= parameter of ranking endpoints.
type limitQuery struct {
	Limit int `validate:"gte=1,lte=100"`
}

// FacultyListResponse wraps the faculty selector options.
type FacultyListResponse struct {
	Faculty []string `json:"faculty"`
}

// CoauthorsResponse wraps a co-author ranking.
type CoauthorsResponse struct {
	Faculty   string            `json:"faculty"`
	Coauthors []models.Coauthor `json:"coauthors"`
}

// InstitutesResponse wraps an institute ranking.
type InstitutesResponse struct {
	Institutes []models.InstituteCount `json:"institutes"`
}

// HealthResponse is returned by the readiness probe.
type HealthResponse struct {
	Status string                 `json:"status"`
	Stores []explorer.StoreHealth `json:"stores"`
}

// View, NotesRefresh and ReviewsRefresh are served as the facade returns them.
type (
	View           = explorer.View
	NotesRefresh   = explorer.NotesRefresh
	ReviewsRefresh = explorer.ReviewsRefresh
)
