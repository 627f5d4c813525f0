package httpserver

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/config"
	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

// Default award page parameters.
const (
	defaultAwardPage = 1
	defaultAwardSize = 20
)

// OscarsEngine is the orchestration surface the REST API drives.
type OscarsEngine interface {
	ListAwardLosers(ctx context.Context) []domain.Person
	HonorByLength(ctx context.Context, minLength float64, delta int64, callbackURL string) domain.UpdateSummary
	HonorByLowCount(ctx context.Context, maxCount, delta int64, callbackURL string) domain.UpdateSummary
	DeriveAwards(ctx context.Context, movieID int64, page, size int) []domain.Award
	AddOscars(ctx context.Context, movieID, delta int64, callbackURL string) domain.UpdateSummary
	RevokeAllOscars(ctx context.Context, movieID int64) bool
}

type callbackRequest struct {
	CallbackURL *string `json:"callbackUrl"`
}

type updateSummaryResponse struct {
	UpdatedCount  int                `json:"updatedCount"`
	UpdatedMovies []catalog.MovieDTO `json:"updatedMovies"`
}

type awardResponse struct {
	AwardID  int    `json:"awardId"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

type oscarsHandlers struct {
	*Server
	engine  OscarsEngine
	catalog catalog.Client
}

// NewOscars builds the oscars orchestration API. soap, when non-nil, is
// mounted at POST /ws.
func NewOscars(cfg config.Oscars, engine OscarsEngine, client catalog.Client, soap http.Handler, logger *zap.Logger) *Server {
	s := newServer(cfg.Server, logger)
	h := &oscarsHandlers{Server: s, engine: engine, catalog: client}
	h.registerRoutes(s.router)
	if soap != nil {
		s.router.Method(http.MethodPost, "/ws", soap)
	}
	return s
}

func (h *oscarsHandlers) registerRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Route("/oscars", func(r chi.Router) {
		r.Get("/operators/losers", h.handleLosers)
		r.Post("/movies/honor-by-length/{minLength}", h.handleHonorByLength)
		r.Post("/movies/honor-low-oscars", h.handleHonorLowOscars)
		r.Get("/movies/{movieId}", h.handleAwards)
		r.Post("/movies/{movieId}", h.handleAddOscars)
		r.Delete("/movies/{movieId}", h.handleRevoke)
	})
}

func (h *oscarsHandlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.catalog.Page(ctx, catalog.PageQuery{Page: 1, Size: 1}); err != nil {
		h.logger.Warn("catalog unreachable", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *oscarsHandlers) handleLosers(w http.ResponseWriter, r *http.Request) {
	losers := h.engine.ListAwardLosers(r.Context())
	if len(losers) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	out := make([]*catalog.PersonDTO, 0, len(losers))
	for i := range losers {
		out = append(out, catalog.ToPersonDTO(&losers[i]))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *oscarsHandlers) handleHonorByLength(w http.ResponseWriter, r *http.Request) {
	minLength, err := strconv.ParseFloat(chi.URLParam(r, "minLength"), 64)
	if err != nil || math.IsNaN(minLength) || minLength < 0 {
		h.respondError(w, http.StatusUnprocessableEntity, "minLength must be a non-negative number")
		return
	}
	delta, err := requiredInt(r, "oscarsToAdd", 0)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	callback, ok := h.callbackURL(w, r)
	if !ok {
		return
	}
	summary := h.engine.HonorByLength(r.Context(), minLength, delta, callback)
	h.respondJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *oscarsHandlers) handleHonorLowOscars(w http.ResponseWriter, r *http.Request) {
	maxOscars, err := requiredInt(r, "maxOscars", 0)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	delta, err := requiredInt(r, "oscarsToAdd", 0)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	callback, ok := h.callbackURL(w, r)
	if !ok {
		return
	}
	summary := h.engine.HonorByLowCount(r.Context(), maxOscars, delta, callback)
	h.respondJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *oscarsHandlers) handleAwards(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathMovieID(w, r)
	if !ok {
		return
	}
	page, err := optionalInt(r, "page", defaultAwardPage)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	size, err := optionalInt(r, "size", defaultAwardSize)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	awards := h.engine.DeriveAwards(r.Context(), id, page, size)
	if len(awards) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	out := make([]awardResponse, 0, len(awards))
	for _, a := range awards {
		out = append(out, awardResponse{AwardID: a.AwardID, Date: a.Date, Category: a.Category})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *oscarsHandlers) handleAddOscars(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathMovieID(w, r)
	if !ok {
		return
	}
	delta, err := requiredInt(r, "oscarsToAdd", 0)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	callback, ok := h.callbackURL(w, r)
	if !ok {
		return
	}
	summary := h.engine.AddOscars(r.Context(), id, delta, callback)
	h.respondJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *oscarsHandlers) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathMovieID(w, r)
	if !ok {
		return
	}
	if h.engine.RevokeAllOscars(r.Context(), id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotModified)
}

func (h *oscarsHandlers) pathMovieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "movieId"), 10, 64)
	if err != nil || id < 1 {
		h.respondError(w, http.StatusUnprocessableEntity, "movieId must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *oscarsHandlers) callbackURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req callbackRequest
	if err := decodeJSONBody(w, r, &req, true); err != nil {
		h.respondDecodeError(w, err)
		return "", false
	}
	if req.CallbackURL == nil {
		return "", true
	}
	return strings.TrimSpace(*req.CallbackURL), true
}

func requiredInt(r *http.Request, name string, min int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be an integer >= %d", name, min)
	}
	return v, nil
}

func optionalInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

func toSummaryResponse(s domain.UpdateSummary) updateSummaryResponse {
	return updateSummaryResponse{
		UpdatedCount:  s.UpdatedCount,
		UpdatedMovies: catalog.ToMovieDTOs(s.UpdatedMovies),
	}
}
