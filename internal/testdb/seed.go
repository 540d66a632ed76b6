package testdb

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

// TitleSeed describes a reference title inserted directly for tests.
type TitleSeed struct {
	Name     string
	Synopsis string
	Type     string
	Studio   string
	Genres   []string
	Year     *int
}

// SeedTitle inserts a title with its studio and genres, creating the studio and
// genres on demand, and returns the title id.
func (db *DB) SeedTitle(tb testing.TB, seed TitleSeed) int64 {
	tb.Helper()
	ctx := context.Background()

	if seed.Type == "" {
		seed.Type = "movie"
	}

	var studioID *int64
	if seed.Studio != "" {
		var id int64
		err := db.Pool.QueryRow(ctx, `SELECT studio_id FROM studios WHERE name = $1`, seed.Studio).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			err = db.Pool.QueryRow(ctx, `INSERT INTO studios (name) VALUES ($1) RETURNING studio_id`, seed.Studio).Scan(&id)
		}
		if err != nil {
			tb.Fatalf("seed studio %q: %v", seed.Studio, err)
		}
		studioID = &id
	}

	var titleID int64
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO titles (title, synopsis, type, studio_id, release_year)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING title_id
    `, seed.Name, seed.Synopsis, seed.Type, studioID, seed.Year).Scan(&titleID)
	if err != nil {
		tb.Fatalf("seed title %q: %v", seed.Name, err)
	}

	for _, genre := range seed.Genres {
		genreID := db.SeedGenre(tb, genre)
		if _, err := db.Pool.Exec(ctx, `INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)`, titleID, genreID); err != nil {
			tb.Fatalf("seed title genre %q: %v", genre, err)
		}
	}
	return titleID
}

// SeedGenre returns the id of the named genre, inserting it if needed.
func (db *DB) SeedGenre(tb testing.TB, name string) int64 {
	tb.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(), `
        INSERT INTO genres (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING genre_id
    `, name).Scan(&id)
	if err != nil {
		tb.Fatalf("seed genre %q: %v", name, err)
	}
	return id
}

// SeedPerson credits a new person on a title and returns the person id.
func (db *DB) SeedPerson(tb testing.TB, titleID int64, name, role string, character *string) int64 {
	tb.Helper()
	ctx := context.Background()
	var personID int64
	if err := db.Pool.QueryRow(ctx, `INSERT INTO people (name) VALUES ($1) RETURNING person_id`, name).Scan(&personID); err != nil {
		tb.Fatalf("seed person %q: %v", name, err)
	}
	if _, err := db.Pool.Exec(ctx, `
        INSERT INTO title_people (title_id, person_id, role, character_name)
        VALUES ($1, $2, $3, $4)
    `, titleID, personID, role, character); err != nil {
		tb.Fatalf("seed title person %q: %v", name, err)
	}
	return personID
}

// SeedUser inserts a user with an opaque credential and returns its id.
func (db *DB) SeedUser(tb testing.TB, username string) int64 {
	tb.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(), `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, 'x')
        RETURNING user_id
    `, username, username+"@example.test").Scan(&id)
	if err != nil {
		tb.Fatalf("seed user %q: %v", username, err)
	}
	return id
}
