package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/mywatchlist/internal/auth"
	"github.com/Clark-Hu/mywatchlist/internal/catalog"
	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type listEntryRequest struct {
	TitleID  int64  `json:"titleId"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

type listEntryResponse struct {
	TitleID   int64     `json:"titleId"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type rateRequest struct {
	TitleID int64 `json:"titleId"`
	Score   int   `json:"score"`
}

type rateResponse struct {
	TitleID       int64    `json:"titleId"`
	Score         int      `json:"score"`
	RatingAverage *float64 `json:"ratingAverage"`
	RatingCount   int64    `json:"ratingCount"`
}

type reviewRequest struct {
	TitleID int64  `json:"titleId"`
	Content string `json:"content"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "register user")
		return
	}
	s.respondJSON(w, r, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}

	session, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err, "log in")
		return
	}
	s.respondJSON(w, r, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserResponse(session.User),
	})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.ListEntries(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err, "load list")
		return
	}
	resp := make([]listEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toListEntryResponse(e))
	}
	s.respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleUpsertListEntry(w http.ResponseWriter, r *http.Request) {
	var req listEntryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}

	entry, inserted, err := s.catalog.UpsertListEntry(r.Context(), catalog.ListEntryInput{
		UserID:   userIDFrom(r.Context()),
		TitleID:  req.TitleID,
		Status:   domain.ListStatus(req.Status),
		Progress: req.Progress,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "update list")
		return
	}
	s.respondJSON(w, r, createdOrOK(inserted), toListEntryResponse(entry))
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}

	result, err := s.catalog.UpsertRating(r.Context(), catalog.RatingInput{
		UserID:  userIDFrom(r.Context()),
		TitleID: req.TitleID,
		Score:   req.Score,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "process rating")
		return
	}
	s.respondJSON(w, r, createdOrOK(result.Inserted), rateResponse{
		TitleID:       result.Rating.TitleID,
		Score:         result.Rating.Score,
		RatingAverage: roundToOneDecimal(result.Aggregate.Average),
		RatingCount:   result.Aggregate.Count,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}

	review, err := s.catalog.AddReview(r.Context(), catalog.ReviewInput{
		UserID:  userIDFrom(r.Context()),
		TitleID: req.TitleID,
		Content: req.Content,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "add review")
		return
	}
	s.respondJSON(w, r, http.StatusCreated, toReviewResponse(review))
}

func createdOrOK(inserted bool) int {
	if inserted {
		return http.StatusCreated
	}
	return http.StatusOK
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toListEntryResponse(e domain.ListEntry) listEntryResponse {
	return listEntryResponse{
		TitleID:   e.TitleID,
		Title:     e.TitleName,
		Status:    string(e.Status),
		Progress:  e.Progress,
		UpdatedAt: e.UpdatedAt,
	}
}
