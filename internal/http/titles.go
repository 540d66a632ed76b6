package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/mywatchlist/internal/catalog"
	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/repository"
)

type titleResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Synopsis      string   `json:"synopsis"`
	Type          string   `json:"type"`
	Studio        *string  `json:"studio,omitempty"`
	ReleaseYear   *int     `json:"releaseYear,omitempty"`
	Genres        []string `json:"genres"`
	RatingAverage *float64 `json:"ratingAverage"`
	RatingCount   int64    `json:"ratingCount"`
}

type titleListResponse struct {
	Items []titleResponse `json:"items"`
}

type staffResponse struct {
	PersonID      int64   `json:"personId"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	CharacterName *string `json:"characterName,omitempty"`
	Biography     string  `json:"biography,omitempty"`
	BirthDate     *string `json:"birthDate,omitempty"`
}

type reviewResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	TitleID   int64     `json:"titleId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type titleDetailResponse struct {
	titleResponse
	Staff   []staffResponse  `json:"staff"`
	Reviews []reviewResponse `json:"reviews"`
}

type homeResponse struct {
	Recommended []titleResponse `json:"recommended"`
	Featured    []titleResponse `json:"featured"`
}

type genreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	criteria, err := buildCatalogCriteria(r.URL.Query())
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	titles, err := s.catalog.ListCatalog(r.Context(), criteria)
	if err != nil {
		s.respondServiceError(w, r, err, "list titles")
		return
	}
	s.respondJSON(w, r, http.StatusOK, titleListResponse{Items: toTitleResponses(titles)})
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if val := strings.TrimSpace(r.URL.Query().Get("limit")); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 0 {
			s.respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid limit value")
			return
		}
		limit = parsed
	}

	titles, err := s.catalog.TopRated(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, r, err, "list top rated titles")
		return
	}
	s.respondJSON(w, r, http.StatusOK, titleListResponse{Items: toTitleResponses(titles)})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.catalog.Home(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err, "load home")
		return
	}
	s.respondJSON(w, r, http.StatusOK, homeResponse{
		Recommended: toTitleResponses(home.Recommended),
		Featured:    toTitleResponses(home.Featured),
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.catalog.Genres(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err, "list genres")
		return
	}
	resp := make([]genreResponse, 0, len(genres))
	for _, g := range genres {
		resp = append(resp, genreResponse{ID: g.ID, Name: g.Name})
	}
	s.respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleTitleDetail(w http.ResponseWriter, r *http.Request) {
	titleID, err := parseTitleID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	detail, err := s.catalog.TitleDetail(r.Context(), titleID)
	if err != nil {
		s.respondServiceError(w, r, err, "load title")
		return
	}

	resp := titleDetailResponse{
		titleResponse: toTitleResponse(detail.Title),
		Staff:         make([]staffResponse, 0, len(detail.Staff)),
		Reviews:       make([]reviewResponse, 0, len(detail.Reviews)),
	}
	for _, member := range detail.Staff {
		sr := staffResponse{
			PersonID:      member.PersonID,
			Name:          member.Name,
			Role:          member.Role,
			CharacterName: member.CharacterName,
			Biography:     member.Biography,
		}
		if member.BirthDate != nil {
			d := member.BirthDate.Format("2006-01-02")
			sr.BirthDate = &d
		}
		resp.Staff = append(resp.Staff, sr)
	}
	for _, review := range detail.Reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(review))
	}
	s.respondJSON(w, r, http.StatusOK, resp)
}

// buildCatalogCriteria reads the browse filters from the query string. Empty
// parameters are treated as absent.
func buildCatalogCriteria(query url.Values) (catalog.Criteria, error) {
	var criteria catalog.Criteria

	if val := strings.TrimSpace(query.Get("type")); val != "" {
		if !domain.TitleType(val).Valid() {
			return criteria, fmt.Errorf("invalid type value")
		}
		criteria.Type = &val
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		criteria.Genre = &val
	}
	if val := strings.TrimSpace(query.Get("search")); val != "" {
		criteria.Search = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 || limit > repository.MaxCatalogLimit {
			return criteria, fmt.Errorf("invalid limit value")
		}
		criteria.Limit = limit
	}
	return criteria, nil
}

func parseTitleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid title id")
	}
	return id, nil
}

func toTitleResponses(titles []domain.TitleSummary) []titleResponse {
	out := make([]titleResponse, 0, len(titles))
	for _, t := range titles {
		out = append(out, toTitleResponse(t))
	}
	return out
}

func toTitleResponse(t domain.TitleSummary) titleResponse {
	return titleResponse{
		ID:            t.ID,
		Title:         t.Name,
		Synopsis:      t.Synopsis,
		Type:          string(t.Type),
		Studio:        t.StudioName,
		ReleaseYear:   t.ReleaseYear,
		Genres:        t.GenreNames(),
		RatingAverage: roundToOneDecimal(t.RatingAverage),
		RatingCount:   t.RatingCount,
	}
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		Username:  r.Username,
		TitleID:   r.TitleID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}
