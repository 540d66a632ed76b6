package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

// ListsRepository persists watch-list entries.
type ListsRepository struct {
	conn
}

// ListEntryUpsertParams captures the payload required to upsert a list entry.
type ListEntryUpsertParams struct {
	UserID   int64
	TitleID  int64
	Status   domain.ListStatus
	Progress int
}

// Upsert creates the (user, title) entry or overwrites its status and progress.
// It reports whether a new row was inserted.
func (r *ListsRepository) Upsert(ctx context.Context, params ListEntryUpsertParams) (entry domain.ListEntry, inserted bool, err error) {
	defer observe("user_lists", "upsert", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        INSERT INTO user_lists (user_id, title_id, status, progress)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, title_id)
        DO UPDATE SET status = EXCLUDED.status, progress = EXCLUDED.progress, updated_at = now()
        RETURNING user_id, title_id, status, progress, created_at, updated_at, (xmax = 0) AS inserted
    `

	var (
		status   string
		progress int32
	)
	err = r.pool.QueryRow(ctx, query, params.UserID, params.TitleID, string(params.Status), params.Progress).Scan(
		&entry.UserID,
		&entry.TitleID,
		&status,
		&progress,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.ListEntry{}, false, fmt.Errorf("upsert list entry: %w", classify(err))
	}
	entry.Status = domain.ListStatus(status)
	entry.Progress = int(progress)
	return entry, inserted, nil
}

// ListByUser returns a user's watch-list, most recently updated first.
func (r *ListsRepository) ListByUser(ctx context.Context, userID int64) (entries []domain.ListEntry, err error) {
	defer observe("user_lists", "list", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        SELECT ul.user_id, ul.title_id, t.title, ul.status, ul.progress, ul.created_at, ul.updated_at
        FROM user_lists ul
        JOIN titles t ON t.title_id = ul.title_id
        WHERE ul.user_id = $1
        ORDER BY ul.updated_at DESC, ul.title_id
    `
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", classify(err))
	}
	defer rows.Close()

	entries = make([]domain.ListEntry, 0)
	for rows.Next() {
		var (
			entry    domain.ListEntry
			status   string
			progress int32
		)
		if err := rows.Scan(
			&entry.UserID,
			&entry.TitleID,
			&entry.TitleName,
			&status,
			&progress,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan list entry: %w", classify(err))
		}
		entry.Status = domain.ListStatus(status)
		entry.Progress = int(progress)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", classify(err))
	}
	return entries, nil
}
