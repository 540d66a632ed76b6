// Package catalog holds the catalog reads and the list, rating and review
// mutations that sit between the HTTP layer and the repositories.
package catalog

import (
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/mywatchlist/internal/repository"
)

// Service exposes the catalog operations. It is safe for concurrent use.
type Service struct {
	titles     *repository.TitlesRepository
	lists      *repository.ListsRepository
	ratings    *repository.RatingsRepository
	reviews    *repository.ReviewsRepository
	aggregator *Aggregator
}

// New wires a Service over repo.
func New(repo *repository.Repository, logger zerolog.Logger) *Service {
	return &Service{
		titles:     repo.Titles,
		lists:      repo.Lists,
		ratings:    repo.Ratings,
		reviews:    repo.Reviews,
		aggregator: NewAggregator(repo.Ratings, logger.With().Str("component", "catalog").Logger()),
	}
}
