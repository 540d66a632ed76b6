package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

// RatingsRepository provides helpers for title ratings and their aggregate.
type RatingsRepository struct {
	conn
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	UserID  int64
	TitleID int64
	Score   int
}

// Upsert inserts or updates a rating and indicates whether it was newly created.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (rating domain.Rating, inserted bool, err error) {
	defer observe("ratings", "upsert", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        INSERT INTO ratings (user_id, title_id, score)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, title_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = now()
        RETURNING user_id, title_id, score, created_at, updated_at, (xmax = 0) AS inserted
    `

	var score int16
	err = r.pool.QueryRow(ctx, query, params.UserID, params.TitleID, params.Score).Scan(
		&rating.UserID,
		&rating.TitleID,
		&score,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Rating{}, false, fmt.Errorf("upsert rating: %w", classify(err))
	}
	rating.Score = int(score)

	return rating, inserted, nil
}

// Get retrieves the rating a user gave a title.
func (r *RatingsRepository) Get(ctx context.Context, userID, titleID int64) (rating domain.Rating, err error) {
	defer observe("ratings", "get", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        SELECT user_id, title_id, score, created_at, updated_at
        FROM ratings
        WHERE user_id = $1 AND title_id = $2
    `
	var score int16
	err = r.pool.QueryRow(ctx, query, userID, titleID).Scan(
		&rating.UserID,
		&rating.TitleID,
		&score,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("get rating: %w", classify(err))
	}
	rating.Score = int(score)
	return rating, nil
}

// Aggregate computes the average and count directly from the rating rows,
// without touching the values stored on the title.
func (r *RatingsRepository) Aggregate(ctx context.Context, titleID int64) (agg domain.RatingAggregate, err error) {
	defer observe("ratings", "aggregate", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	agg.TitleID = titleID
	err = r.pool.QueryRow(ctx, aggregateQuery, titleID).Scan(&agg.Average, &agg.Count)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", classify(err))
	}
	return agg, nil
}

const aggregateQuery = `
    SELECT AVG(score)::float8 AS average,
           COUNT(*)::int8 AS count
    FROM ratings
    WHERE title_id = $1
`

// Recompute rebuilds rating_average and rating_count for a title from its
// rating rows and stores them on the title.
//
// The title row is locked FOR UPDATE before the ratings are read, so
// recomputations for one title run one at a time and each reads every rating
// committed before it acquired the lock. Titles never block each other.
func (r *RatingsRepository) Recompute(ctx context.Context, titleID int64) (agg domain.RatingAggregate, err error) {
	defer observe("titles", "recompute", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("begin recompute: %w", classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked int64
	if err = tx.QueryRow(ctx, `SELECT title_id FROM titles WHERE title_id = $1 FOR UPDATE`, titleID).Scan(&locked); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("lock title %d: %w", titleID, classify(err))
	}

	agg.TitleID = titleID
	if err = tx.QueryRow(ctx, aggregateQuery, titleID).Scan(&agg.Average, &agg.Count); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", classify(err))
	}

	if _, err = tx.Exec(ctx, `
        UPDATE titles
        SET rating_average = $2,
            rating_count = $3
        WHERE title_id = $1
    `, titleID, agg.Average, agg.Count); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("store aggregate: %w", classify(err))
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("commit recompute: %w", classify(err))
	}
	return agg, nil
}
