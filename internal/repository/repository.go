package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/mywatchlist/internal/metrics"
	"github.com/Clark-Hu/mywatchlist/internal/store"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Titles  *TitlesRepository
	Ratings *RatingsRepository
	Lists   *ListsRepository
	Reviews *ReviewsRepository
	Users   *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool(), st.QueryTimeout())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
// A non-positive timeout leaves round trips bounded only by the caller's
// context.
func NewWithPool(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	c := conn{pool: pool, timeout: timeout}
	return &Repository{
		Titles:  &TitlesRepository{conn: c},
		Ratings: &RatingsRepository{conn: c},
		Lists:   &ListsRepository{conn: c},
		Reviews: &ReviewsRepository{conn: c},
		Users:   &UsersRepository{conn: c},
	}
}

// conn is the pool handle shared by every repository.
type conn struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// roundTrip derives the context for one store round trip.
func (c conn) roundTrip(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// observe records one round trip; errp is read when the deferred call runs.
func observe(table, operation string, start time.Time, errp *error) {
	metrics.ObserveQuery(table, operation, start, *errp)
}
