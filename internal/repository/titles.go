package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

// TitlesRepository reads catalog titles and their related reference data.
type TitlesRepository struct {
	conn
}

// List returns the titles that match filter, best rated first. No match yields
// an empty slice.
func (r *TitlesRepository) List(ctx context.Context, filter CatalogFilter) (items []domain.TitleSummary, err error) {
	defer observe("titles", "list", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	query, args := buildCatalogQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", classify(err))
	}
	defer rows.Close()

	items = make([]domain.TitleSummary, 0)
	for rows.Next() {
		title, err := scanTitleSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", classify(err))
		}
		items = append(items, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list titles: %w", classify(err))
	}
	return items, nil
}

// GetByID fetches one title with its studio name and genres.
func (r *TitlesRepository) GetByID(ctx context.Context, id int64) (title domain.TitleSummary, err error) {
	defer observe("titles", "get", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	query, args := buildCatalogQuery(CatalogFilter{titleID: &id})
	title, err = scanTitleSummary(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.TitleSummary{}, fmt.Errorf("get title %d: %w", id, classify(err))
	}
	return title, nil
}

// Staff returns the people credited on a title with their role and character.
func (r *TitlesRepository) Staff(ctx context.Context, titleID int64) (staff []domain.StaffMember, err error) {
	defer observe("title_people", "list", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        SELECT p.person_id, p.name, p.biography, p.birth_date, tp.role, tp.character_name
        FROM title_people tp
        JOIN people p ON p.person_id = tp.person_id
        WHERE tp.title_id = $1
        ORDER BY tp.role, p.name
    `
	rows, err := r.pool.Query(ctx, query, titleID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", classify(err))
	}
	defer rows.Close()

	staff = make([]domain.StaffMember, 0)
	for rows.Next() {
		var member domain.StaffMember
		if err := rows.Scan(
			&member.PersonID,
			&member.Name,
			&member.Biography,
			&member.BirthDate,
			&member.Role,
			&member.CharacterName,
		); err != nil {
			return nil, fmt.Errorf("scan staff: %w", classify(err))
		}
		staff = append(staff, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list staff: %w", classify(err))
	}
	return staff, nil
}

// Genres lists every genre by name, for browse filters.
func (r *TitlesRepository) Genres(ctx context.Context) (genres []domain.Genre, err error) {
	defer observe("genres", "list", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT genre_id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", classify(err))
	}
	defer rows.Close()

	genres = make([]domain.Genre, 0)
	for rows.Next() {
		var g domain.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", classify(err))
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list genres: %w", classify(err))
	}
	return genres, nil
}

func scanTitleSummary(row pgx.Row) (domain.TitleSummary, error) {
	var (
		title     domain.TitleSummary
		titleType string
		year      *int32
		count     int32
	)

	err := row.Scan(
		&title.ID,
		&title.Name,
		&title.Synopsis,
		&titleType,
		&title.StudioID,
		&title.StudioName,
		&year,
		&title.Genres,
		&title.RatingAverage,
		&count,
		&title.CreatedAt,
	)
	if err != nil {
		return domain.TitleSummary{}, err
	}

	title.Type = domain.TitleType(titleType)
	title.RatingCount = int64(count)
	if year != nil {
		y := int(*year)
		title.ReleaseYear = &y
	}
	return title, nil
}
