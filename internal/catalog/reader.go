package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/repository"
)

const (
	// RecentReviewLimit is how many reviews a detail view carries.
	RecentReviewLimit = 10

	DefaultTopRatedLimit = 10
	MaxTopRatedLimit     = 50

	homeRecommendedLimit = 5
)

// Criteria are the optional browse filters. Nil or blank fields are ignored.
type Criteria struct {
	Type   *string
	Genre  *string
	Search *string
	Limit  int
}

// Home is the landing view: a short top-rated strip plus the full listing.
type Home struct {
	Recommended []domain.TitleSummary
	Featured    []domain.TitleSummary
}

// ListCatalog returns the titles matching c, best rated first.
func (s *Service) ListCatalog(ctx context.Context, c Criteria) ([]domain.TitleSummary, error) {
	titles, err := s.titles.List(ctx, repository.CatalogFilter{
		Type:   c.Type,
		Genre:  c.Genre,
		Search: c.Search,
		Limit:  c.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return titles, nil
}

// TopRated returns up to limit titles by rating. A non-positive limit means
// DefaultTopRatedLimit; larger values are capped at MaxTopRatedLimit.
func (s *Service) TopRated(ctx context.Context, limit int) ([]domain.TitleSummary, error) {
	switch {
	case limit <= 0:
		limit = DefaultTopRatedLimit
	case limit > MaxTopRatedLimit:
		limit = MaxTopRatedLimit
	}
	titles, err := s.titles.List(ctx, repository.CatalogFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	return titles, nil
}

// Home loads the recommended strip and the featured listing together.
func (s *Service) Home(ctx context.Context) (Home, error) {
	var home Home
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		home.Recommended, err = s.TopRated(gctx, homeRecommendedLimit)
		return err
	})
	g.Go(func() error {
		var err error
		home.Featured, err = s.ListCatalog(gctx, Criteria{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Home{}, err
	}
	return home, nil
}

// TitleDetail composes the title row, its staff and its most recent reviews.
// The three reads run concurrently and either all succeed or the call fails.
func (s *Service) TitleDetail(ctx context.Context, titleID int64) (domain.TitleDetail, error) {
	var (
		title   domain.TitleSummary
		staff   []domain.StaffMember
		reviews []domain.Review
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		title, err = s.titles.GetByID(gctx, titleID)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = s.titles.Staff(gctx, titleID)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviews.Recent(gctx, titleID, RecentReviewLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TitleDetail{}, fmt.Errorf("title detail %d: %w", titleID, err)
	}

	return domain.TitleDetail{Title: title, Staff: staff, Reviews: reviews}, nil
}

// Genres lists genre names for browse filters.
func (s *Service) Genres(ctx context.Context) ([]domain.Genre, error) {
	genres, err := s.titles.Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	return genres, nil
}
