package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/repository"
	"github.com/Clark-Hu/mywatchlist/internal/validation"
)

// MaxReviewLength bounds review content, in characters.
const MaxReviewLength = 10000

// ListEntryInput is the payload of a watch-list upsert.
type ListEntryInput struct {
	UserID   int64             `json:"user_id" validate:"gt=0"`
	TitleID  int64             `json:"title_id" validate:"gt=0"`
	Status   domain.ListStatus `json:"status" validate:"oneof=watching completed planned on_hold dropped"`
	Progress int               `json:"progress" validate:"gte=0"`
}

// RatingInput is the payload of a rating upsert.
type RatingInput struct {
	UserID  int64 `json:"user_id" validate:"gt=0"`
	TitleID int64 `json:"title_id" validate:"gt=0"`
	Score   int   `json:"score" validate:"gte=1,lte=10"`
}

// ReviewInput is the payload of a new review.
type ReviewInput struct {
	UserID  int64  `json:"user_id" validate:"gt=0"`
	TitleID int64  `json:"title_id" validate:"gt=0"`
	Content string `json:"content" validate:"nonblank,max=10000"`
}

// RatingResult is a stored rating together with the aggregate that already
// reflects it.
type RatingResult struct {
	Rating    domain.Rating
	Aggregate domain.RatingAggregate
	Inserted  bool
}

// UpsertListEntry creates or overwrites the caller's entry for a title.
func (s *Service) UpsertListEntry(ctx context.Context, in ListEntryInput) (domain.ListEntry, bool, error) {
	if err := validation.Struct(&in); err != nil {
		return domain.ListEntry{}, false, err
	}

	entry, inserted, err := s.lists.Upsert(ctx, repository.ListEntryUpsertParams{
		UserID:   in.UserID,
		TitleID:  in.TitleID,
		Status:   in.Status,
		Progress: in.Progress,
	})
	if err != nil {
		return domain.ListEntry{}, false, err
	}
	return entry, inserted, nil
}

// ListEntries returns a user's watch-list, most recently updated first.
func (s *Service) ListEntries(ctx context.Context, userID int64) ([]domain.ListEntry, error) {
	entries, err := s.lists.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertRating stores the caller's score and recomputes the title aggregate
// before returning. If the rating was written but the recompute failed the
// error matches domain.ErrAggregateInconsistency.
func (s *Service) UpsertRating(ctx context.Context, in RatingInput) (RatingResult, error) {
	if err := validation.Struct(&in); err != nil {
		return RatingResult{}, err
	}

	rating, inserted, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
		UserID:  in.UserID,
		TitleID: in.TitleID,
		Score:   in.Score,
	})
	if err != nil {
		return RatingResult{}, err
	}

	// The rating row is committed; finish the recompute even if the caller
	// goes away. Each round trip still has its own deadline.
	agg, err := s.aggregator.Recompute(context.WithoutCancel(ctx), in.TitleID)
	if err != nil {
		return RatingResult{}, fmt.Errorf("%w: title %d: %w", domain.ErrAggregateInconsistency, in.TitleID, err)
	}

	return RatingResult{Rating: rating, Aggregate: agg, Inserted: inserted}, nil
}

// AddReview appends a review. Identical content is stored again as a new row.
func (s *Service) AddReview(ctx context.Context, in ReviewInput) (domain.Review, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(&in); err != nil {
		return domain.Review{}, err
	}

	review, err := s.reviews.Create(ctx, repository.ReviewCreateParams{
		UserID:  in.UserID,
		TitleID: in.TitleID,
		Content: in.Content,
	})
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}
