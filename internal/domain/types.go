package domain

import (
	"fmt"
	"time"
)

// Tier classifies a level for derivation purposes
type Tier int

const (
	TierSchool Tier = iota
	TierCollege
	TierSpecialProgram
)

func (t Tier) String() string {
	switch t {
	case TierSchool:
		return "school"
	case TierCollege:
		return "college"
	case TierSpecialProgram:
		return "special_program"
	}
	return "unknown"
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name
func (t *Tier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "school":
		*t = TierSchool
	case "college":
		*t = TierCollege
	case "special_program":
		*t = TierSpecialProgram
	default:
		return fmt.Errorf("unknown tier: %q", b)
	}
	return nil
}

// ResourceKind is the category of a catalog entry
type ResourceKind string

const (
	KindTextbook   ResourceKind = "textbook"
	KindDocument   ResourceKind = "document"
	KindVideo      ResourceKind = "video"
	KindNotes      ResourceKind = "notes"
	KindExamPaper  ResourceKind = "exam_paper"
	KindModelPaper ResourceKind = "model_paper"
	KindGuessPaper ResourceKind = "guess_paper"
)

// Kinds lists every known resource kind in display order
var Kinds = []ResourceKind{
	KindTextbook,
	KindDocument,
	KindVideo,
	KindNotes,
	KindExamPaper,
	KindModelPaper,
	KindGuessPaper,
}

// Valid reports whether k is one of the known kinds
func (k ResourceKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Hint carries presentation data the core never interprets
type Hint struct {
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// Authority is an examination or education board owning a curriculum
type Authority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hint Hint   `json:"hint"`
}

// Level is a grade, year or certificate stage within an authority
type Level struct {
	Label string `json:"label"`
	Tier  Tier   `json:"tier"`
}

// Resource is a single catalog entry attached to a level
type Resource struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Kind   ResourceKind `json:"kind"`
	Link   string       `json:"link,omitempty"`
	Author string       `json:"author,omitempty"`
	Hint   Hint         `json:"hint"`
}

// Base returns the resource itself so plain and derived entries share
// one query path
func (r Resource) Base() Resource { return r }

// DerivedResource is a resource synthesized by rule rather than stored
type DerivedResource struct {
	Resource
	Year        int       `json:"year"`
	ViewCount   int       `json:"view_count"`
	Rating      float64   `json:"rating"`
	LastUpdated time.Time `json:"last_updated"`
}

// SelectionContext is the user's current position in the hierarchy
type SelectionContext struct {
	Authority string `json:"authority,omitempty"`
	Level     string `json:"level,omitempty"`
	Subject   string `json:"subject,omitempty"`
	AsOfYear  int    `json:"as_of_year"`
}

// Item is anything that can be filtered and grouped as a resource
type Item interface {
	Base() Resource
}

// Group is one level bucket of a grouped listing
type Group[T Item] struct {
	Level Level `json:"level"`
	Items []T   `json:"items"`
}
