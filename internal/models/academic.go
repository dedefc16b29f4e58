// Package models defines the domain types shared by the stores and the explorer.
package models

import "time"

// FacultyProfile is the graph store's view of a faculty member.
type FacultyProfile struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	PhotoURL string `json:"photo_url"`
}

// Coauthor is one entry of a faculty member's collaborator ranking.
type Coauthor struct {
	Name              string `json:"name"`
	JointPublications int64  `json:"joint_publications"`
}

// YearCount is the number of publications in a single year.
type YearCount struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

// InstituteCount is the number of publications affiliated with a university.
type InstituteCount struct {
	Name         string `json:"name"`
	Publications int64  `json:"publications"`
}

// Paper is a publication as listed for a faculty member.
type Paper struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// ReviewRecord marks a publication as reviewed on behalf of its owning faculty member.
type ReviewRecord struct {
	PublicationID int64     `json:"publication_id"`
	FacultyID     int64     `json:"faculty_id"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// Note is a free-text annotation attached to a faculty member by name.
type Note struct {
	ID        string    `json:"id"`
	Faculty   string    `json:"faculty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"time"`
}

// WriteStatus tells a caller whether a write actually happened.
type WriteStatus int

const (
	StatusWritten WriteStatus = iota
	StatusNoOp
)

func (s WriteStatus) String() string {
	if s == StatusNoOp {
		return "noop"
	}
	return "written"
}
