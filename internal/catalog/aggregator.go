package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/metrics"
)

type aggregateStore interface {
	Recompute(ctx context.Context, titleID int64) (domain.RatingAggregate, error)
}

// Aggregator keeps a title's stored rating average and count equal to its
// rating rows. Concurrent recomputes of one title are serialized by the store.
type Aggregator struct {
	store  aggregateStore
	logger zerolog.Logger
}

// NewAggregator builds an Aggregator over the ratings store.
func NewAggregator(store aggregateStore, logger zerolog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// Recompute rebuilds and stores the aggregate for titleID.
func (a *Aggregator) Recompute(ctx context.Context, titleID int64) (domain.RatingAggregate, error) {
	start := time.Now()
	agg, err := a.store.Recompute(ctx, titleID)
	metrics.ObserveRecompute(err)
	if err != nil {
		a.logger.Error().Err(err).Int64("title_id", titleID).Msg("rating aggregate recompute failed")
		return domain.RatingAggregate{}, err
	}

	ev := a.logger.Debug().
		Int64("title_id", titleID).
		Int64("count", agg.Count).
		Dur("took", time.Since(start))
	if agg.Average != nil {
		ev = ev.Float64("average", *agg.Average)
	}
	ev.Msg("rating aggregate recomputed")
	return agg, nil
}
