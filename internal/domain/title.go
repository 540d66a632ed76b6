package domain

import (
	"strings"
	"time"
)

// TitleType enumerates the catalog categories.
type TitleType string

const (
	TitleTypeMovie  TitleType = "movie"
	TitleTypeSeries TitleType = "series"
)

// Valid reports whether t is a known catalog category.
func (t TitleType) Valid() bool {
	return t == TitleTypeMovie || t == TitleTypeSeries
}

// GenreDelimiter separates genre names in TitleSummary.Genres.
const GenreDelimiter = ","

// TitleSummary is one catalog row: the title joined with its studio name and
// the delimited genre names.
type TitleSummary struct {
	ID            int64
	Name          string
	Synopsis      string
	Type          TitleType
	StudioID      *int64
	StudioName    *string
	ReleaseYear   *int
	Genres        string
	RatingAverage *float64
	RatingCount   int64
	CreatedAt     time.Time
}

// GenreNames splits Genres into individual names.
func (t TitleSummary) GenreNames() []string {
	if t.Genres == "" {
		return []string{}
	}
	return strings.Split(t.Genres, GenreDelimiter)
}

// StaffMember is a person credited on a title together with the role they
// played in it.
type StaffMember struct {
	PersonID      int64
	Name          string
	Biography     string
	BirthDate     *time.Time
	Role          string
	CharacterName *string
}

// TitleDetail bundles everything the detail page shows for a single title.
type TitleDetail struct {
	Title   TitleSummary
	Staff   []StaffMember
	Reviews []Review
}

// Genre is a catalog genre used by the browse filters.
type Genre struct {
	ID   int64
	Name string
}
