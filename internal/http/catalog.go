package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/config"
	"github.com/Clark-Hu/movie-oscars/internal/domain"
	"github.com/Clark-Hu/movie-oscars/internal/repository"
	"github.com/Clark-Hu/movie-oscars/internal/store"
)

type countResponse struct {
	Count int64 `json:"count"`
}

type catalogHandlers struct {
	*Server
	store  *store.Store
	movies *repository.MoviesRepository
}

// NewCatalog builds the movie catalog API.
func NewCatalog(cfg config.Catalog, st *store.Store, repo *repository.Repository, logger *zap.Logger) *Server {
	s := newServer(cfg.Server, logger)
	h := &catalogHandlers{Server: s, store: st, movies: repo.Movies}
	h.registerRoutes(s.router)
	return s
}

func (h *catalogHandlers) registerRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Route("/movies", func(r chi.Router) {
		r.Get("/", h.handleListMovies)
		r.Post("/", h.handleCreateMovie)
		r.Delete("/oscars-count/{count}", h.handleDeleteByOscarsCount)
		r.Get("/count/oscars-less-than/{count}", h.handleCountOscarsLessThan)
		r.Get("/name-starts-with/{prefix}", h.handleListByNamePrefix)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetMovie)
			r.Put("/", h.handleUpdateMovie)
			r.Patch("/", h.handleUpdateMovie)
			r.Delete("/", h.handleDeleteMovie)
		})
	})
}

func (h *catalogHandlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *catalogHandlers) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	movies, err := h.movies.List(r.Context(), filters)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			h.respondError(w, http.StatusBadRequest, "invalid sort value")
			return
		}
		h.logger.Error("list movies failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list movies")
		return
	}
	h.respondJSON(w, http.StatusOK, catalog.ToMovieDTOs(movies))
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if name := strings.TrimSpace(query.Get("name")); name != "" {
		filters.Name = &name
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		genre, ok := domain.ParseGenre(val)
		if !ok {
			return filters, fmt.Errorf("invalid genre value")
		}
		filters.Genre = &genre
	}
	filters.Sort = strings.TrimSpace(query.Get("sort"))
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page < 1 {
			return filters, fmt.Errorf("invalid page value")
		}
		filters.Page = page
	}
	if val := strings.TrimSpace(query.Get("size")); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil || size < 1 {
			return filters, fmt.Errorf("invalid size value")
		}
		filters.Size = size
	}
	return filters, nil
}

func (h *catalogHandlers) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req catalog.PatchDTO
	if err := decodeJSONBody(w, r, &req, false); err != nil {
		h.respondDecodeError(w, err)
		return
	}
	fields, err := req.Domain()
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if fields.Name == nil || strings.TrimSpace(*fields.Name) == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "Movie name cannot be empty")
		return
	}
	if err := validateMovieFields(fields); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	movie, err := h.movies.Create(r.Context(), fields)
	if err != nil {
		h.logger.Error("create movie failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to create movie")
		return
	}
	h.logger.Info("movie created", zap.Int64("movie_id", movie.ID), zap.String("name", movie.Name))
	w.Header().Set("Location", fmt.Sprintf("/movies/%d", movie.ID))
	h.respondJSON(w, http.StatusCreated, catalog.ToMovieDTO(movie))
}

func (h *catalogHandlers) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "Failed to get movie")
		return
	}
	h.respondJSON(w, http.StatusOK, catalog.ToMovieDTO(movie))
}

func (h *catalogHandlers) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	var req catalog.PatchDTO
	if err := decodeJSONBody(w, r, &req, false); err != nil {
		h.respondDecodeError(w, err)
		return
	}
	patch, err := req.Domain()
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "Movie name cannot be empty")
		return
	}
	if err := validateMovieFields(patch); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	movie, err := h.movies.Update(r.Context(), id, patch)
	if err != nil {
		h.respondRepoError(w, err, "Failed to update movie")
		return
	}
	h.respondJSON(w, http.StatusOK, catalog.ToMovieDTO(movie))
}

func (h *catalogHandlers) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	if err := h.movies.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, err, "Failed to delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *catalogHandlers) handleDeleteByOscarsCount(w http.ResponseWriter, r *http.Request) {
	count, err := parseCountParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := h.movies.DeleteByOscarsCount(r.Context(), count)
	if err != nil {
		h.logger.Error("delete by oscars count failed", zap.Int64("count", count), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete movies")
		return
	}
	if deleted == 0 {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.logger.Info("movies deleted by oscars count", zap.Int64("count", count), zap.Int64("deleted", deleted))
	w.WriteHeader(http.StatusNoContent)
}

func (h *catalogHandlers) handleCountOscarsLessThan(w http.ResponseWriter, r *http.Request) {
	count, err := parseCountParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.movies.CountOscarsLessThan(r.Context(), count)
	if err != nil {
		h.logger.Error("count movies failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to count movies")
		return
	}
	h.respondJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *catalogHandlers) handleListByNamePrefix(w http.ResponseWriter, r *http.Request) {
	prefix, err := url.PathUnescape(chi.URLParam(r, "prefix"))
	if err != nil || prefix == "" {
		h.respondError(w, http.StatusBadRequest, "invalid prefix parameter")
		return
	}
	movies, err := h.movies.ListByNamePrefix(r.Context(), prefix)
	if err != nil {
		h.logger.Error("list by prefix failed", zap.String("prefix", prefix), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to get movies by prefix")
		return
	}
	h.respondJSON(w, http.StatusOK, catalog.ToMovieDTOs(movies))
}

func (h *catalogHandlers) movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.respondError(w, http.StatusBadRequest, "invalid movie id")
		return 0, false
	}
	return id, true
}

func (h *catalogHandlers) respondRepoError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, repository.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	h.logger.Error(strings.ToLower(message), zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, message)
}

func parseCountParam(r *http.Request) (int64, error) {
	count, err := strconv.ParseInt(chi.URLParam(r, "count"), 10, 64)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("invalid count parameter")
	}
	return count, nil
}

func validateMovieFields(p domain.Patch) error {
	if p.OscarsCount != nil && *p.OscarsCount < 0 {
		return fmt.Errorf("oscarsCount must be non-negative")
	}
	if p.GoldenPalmCount != nil && *p.GoldenPalmCount < 0 {
		return fmt.Errorf("goldenPalmCount must be non-negative")
	}
	if p.Budget != nil && !p.Budget.IsPositive() {
		return fmt.Errorf("budget must be positive")
	}
	if sw := p.Screenwriter; sw != nil {
		if strings.TrimSpace(sw.Name) == "" || strings.TrimSpace(sw.PassportID) == "" {
			return fmt.Errorf("screenwriter name and passportID are required")
		}
		if sw.Height != nil && *sw.Height <= 0 {
			return fmt.Errorf("screenwriter height must be positive")
		}
		if sw.Weight != nil && *sw.Weight <= 0 {
			return fmt.Errorf("screenwriter weight must be positive")
		}
	}
	return nil
}
