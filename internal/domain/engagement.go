package domain

import "time"

// Score bounds accepted for a rating.
const (
	MinScore = 1
	MaxScore = 10
)

// ListStatus is the state of a title on a user's watch-list.
type ListStatus string

const (
	ListStatusWatching  ListStatus = "watching"
	ListStatusCompleted ListStatus = "completed"
	ListStatusPlanned   ListStatus = "planned"
	ListStatusOnHold    ListStatus = "on_hold"
	ListStatusDropped   ListStatus = "dropped"
)

// ListEntry is the single watch-list row a user holds for a title.
type ListEntry struct {
	UserID    int64
	TitleID   int64
	TitleName string
	Status    ListStatus
	Progress  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rating represents a single user's score for a title.
type Rating struct {
	UserID    int64
	TitleID   int64
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingAggregate is the derived average and count stored on a title.
// Average is nil while the title has no ratings.
type RatingAggregate struct {
	TitleID int64
	Average *float64
	Count   int64
}

// Review is an append-only comment on a title.
type Review struct {
	ID        int64
	UserID    int64
	TitleID   int64
	Username  string
	Content   string
	CreatedAt time.Time
}

// User is a registered account. PasswordHash is never serialized outward.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
