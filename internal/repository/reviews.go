package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

// ReviewsRepository stores append-only reviews.
type ReviewsRepository struct {
	conn
}

// ReviewCreateParams bundles the fields required to create a review.
type ReviewCreateParams struct {
	UserID  int64
	TitleID int64
	Content string
}

// Create inserts a new review row. Identical reviews are stored as separate rows.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (review domain.Review, err error) {
	defer observe("reviews", "create", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        INSERT INTO reviews (user_id, title_id, content)
        VALUES ($1,$2,$3)
        RETURNING review_id, user_id, title_id, content, created_at
    `
	err = r.pool.QueryRow(ctx, query, params.UserID, params.TitleID, params.Content).Scan(
		&review.ID,
		&review.UserID,
		&review.TitleID,
		&review.Content,
		&review.CreatedAt,
	)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", classify(err))
	}
	return review, nil
}

// Recent returns up to limit reviews of a title with their author's username,
// newest first.
func (r *ReviewsRepository) Recent(ctx context.Context, titleID int64, limit int) (reviews []domain.Review, err error) {
	defer observe("reviews", "recent", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        SELECT r.review_id, r.user_id, r.title_id, u.username, r.content, r.created_at
        FROM reviews r
        JOIN users u ON u.user_id = r.user_id
        WHERE r.title_id = $1
        ORDER BY r.created_at DESC, r.review_id DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, query, titleID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent reviews: %w", classify(err))
	}
	defer rows.Close()

	reviews = make([]domain.Review, 0)
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.TitleID,
			&review.Username,
			&review.Content,
			&review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", classify(err))
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent reviews: %w", classify(err))
	}
	return reviews, nil
}
