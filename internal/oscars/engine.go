package oscars

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/domain"
	"github.com/Clark-Hu/movie-oscars/internal/notify"
)

// Fixed values stamped on derived awards and update callbacks.
const (
	AwardCategory  = "Best Picture"
	AwardDate      = "2024-01-01"
	UpdateCategory = "UPDATE"
)

// Engine runs the oscars operations against the remote catalog. It keeps no
// state between calls: every operation works on a freshly fetched snapshot.
//
// Operations never return errors. Catalog failures are logged and collapse
// into the same empty, zero or false result a genuine "nothing matched"
// produces.
type Engine struct {
	catalog  catalog.Client
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires an engine. A nil notifier disables callbacks.
func NewEngine(client catalog.Client, notifier notify.Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog:  client,
		notifier: notifier,
		logger:   logger.Named("oscars"),
		now:      time.Now,
	}
}

// BulkNotification is posted once per movie updated by a bulk operation.
type BulkNotification struct {
	MovieID       int64              `json:"movieId"`
	AddedOscars   int64              `json:"addedOscars"`
	UpdatedMovies []catalog.MovieDTO `json:"updatedMovies"`
}

// UpdateNotification is posted after a single movie gained oscars.
type UpdateNotification struct {
	MovieID     int64  `json:"movieId"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	AddedOscars int64  `json:"addedOscars"`
}

// IsAwardLoser reports whether m has a screenwriter but no oscars.
func IsAwardLoser(m domain.Movie) bool {
	return m.Screenwriter != nil && m.Oscars() == 0
}

// ListAwardLosers returns the distinct screenwriters of movies without oscars,
// in the order they first appear in the catalog.
func (e *Engine) ListAwardLosers(ctx context.Context) []domain.Person {
	movies := e.fetchAll(ctx)
	losers := make([]domain.Person, 0)
	for _, m := range movies {
		if !IsAwardLoser(m) {
			continue
		}
		if containsPerson(losers, *m.Screenwriter) {
			continue
		}
		losers = append(losers, *m.Screenwriter)
	}
	return losers
}

// HonorByLength adds delta oscars to every movie whose coordinate sum exceeds minLength.
// Movies missing either coordinate never match.
func (e *Engine) HonorByLength(ctx context.Context, minLength float64, delta int64, callbackURL string) domain.UpdateSummary {
	matched := filter(e.fetchAll(ctx), func(m domain.Movie) bool {
		c := m.Coordinates
		if c == nil || c.X == nil || c.Y == nil {
			return false
		}
		return float64(*c.X)+*c.Y > minLength
	})
	e.logger.Info("honor by length",
		zap.Float64("min_length", minLength),
		zap.Int64("oscars_to_add", delta),
		zap.Int("matched", len(matched)))
	return e.bulkHonor(ctx, matched, delta, callbackURL)
}

// HonorByLowCount adds delta oscars to every movie with a known count of at most maxCount.
func (e *Engine) HonorByLowCount(ctx context.Context, maxCount, delta int64, callbackURL string) domain.UpdateSummary {
	matched := filter(e.fetchAll(ctx), func(m domain.Movie) bool {
		return m.OscarsCount != nil && *m.OscarsCount <= maxCount
	})
	e.logger.Info("honor low oscars",
		zap.Int64("max_oscars", maxCount),
		zap.Int64("oscars_to_add", delta),
		zap.Int("matched", len(matched)))
	return e.bulkHonor(ctx, matched, delta, callbackURL)
}

// DeriveAwards lists one synthetic award per oscar the movie holds. page and
// size are accepted for interface compatibility; the full list is always returned.
func (e *Engine) DeriveAwards(ctx context.Context, movieID int64, page, size int) []domain.Award {
	awards := make([]domain.Award, 0)
	lookup := e.fetchOne(ctx, movieID)
	if !lookup.OK() || lookup.Movie.OscarsCount == nil || *lookup.Movie.OscarsCount <= 0 {
		return awards
	}
	for i := int64(1); i <= *lookup.Movie.OscarsCount; i++ {
		awards = append(awards, domain.Award{
			AwardID:  int(i),
			Date:     AwardDate,
			Category: AwardCategory,
		})
	}
	return awards
}

// AddOscars adds delta oscars to one movie, treating an absent count as zero.
func (e *Engine) AddOscars(ctx context.Context, movieID, delta int64, callbackURL string) domain.UpdateSummary {
	lookup := e.fetchOne(ctx, movieID)
	if !lookup.OK() {
		return domain.EmptySummary()
	}

	updated := e.catalog.Patch(ctx, movieID, domain.PatchWithOscars(lookup.Movie, lookup.Movie.Oscars()+delta))
	if !updated.OK() {
		e.logPatchFailure(movieID, updated)
		return domain.EmptySummary()
	}

	e.notify(callbackURL, UpdateNotification{
		MovieID:     updated.Movie.ID,
		Category:    UpdateCategory,
		Date:        e.now().Format(domain.DateLayout),
		AddedOscars: delta,
	})
	return domain.UpdateSummary{UpdatedCount: 1, UpdatedMovies: []domain.Movie{updated.Movie}}
}

// RevokeAllOscars resets a movie's oscars to zero. It reports false without
// touching the catalog when there is nothing to revoke.
func (e *Engine) RevokeAllOscars(ctx context.Context, movieID int64) bool {
	lookup := e.fetchOne(ctx, movieID)
	if !lookup.OK() || lookup.Movie.Oscars() == 0 {
		return false
	}
	updated := e.catalog.Patch(ctx, movieID, domain.PatchWithOscars(lookup.Movie, 0))
	if !updated.OK() {
		e.logPatchFailure(movieID, updated)
		return false
	}
	return true
}

// bulkHonor patches matched movies one by one in fetch order. A failed patch
// is logged and skipped; it never aborts the batch.
func (e *Engine) bulkHonor(ctx context.Context, matched []domain.Movie, delta int64, callbackURL string) domain.UpdateSummary {
	updated := make([]domain.Movie, 0, len(matched))
	for _, m := range matched {
		lookup := e.catalog.Patch(ctx, m.ID, domain.PatchWithOscars(m, m.Oscars()+delta))
		if !lookup.OK() {
			e.logPatchFailure(m.ID, lookup)
			continue
		}
		updated = append(updated, lookup.Movie)
		if hasCallback(callbackURL) {
			e.notify(callbackURL, BulkNotification{
				MovieID:       lookup.Movie.ID,
				AddedOscars:   delta,
				UpdatedMovies: catalog.ToMovieDTOs(updated),
			})
		}
	}
	return domain.UpdateSummary{UpdatedCount: len(updated), UpdatedMovies: updated}
}

func (e *Engine) fetchAll(ctx context.Context) []domain.Movie {
	movies, err := e.catalog.All(ctx)
	if err != nil {
		e.logger.Warn("catalog walk ended early", zap.Int("movies", len(movies)), zap.Error(err))
	}
	return movies
}

func (e *Engine) fetchOne(ctx context.Context, movieID int64) catalog.Lookup {
	lookup := e.catalog.Get(ctx, movieID)
	switch lookup.Outcome {
	case catalog.NotFound:
		e.logger.Info("movie not found", zap.Int64("movie_id", movieID))
	case catalog.TransientError:
		e.logger.Error("fetch movie failed", zap.Int64("movie_id", movieID), zap.Error(lookup.Err))
	}
	return lookup
}

func (e *Engine) logPatchFailure(movieID int64, lookup catalog.Lookup) {
	e.logger.Error("patch movie failed",
		zap.Int64("movie_id", movieID),
		zap.Stringer("outcome", lookup.Outcome),
		zap.Error(lookup.Err))
}

func (e *Engine) notify(callbackURL string, payload any) {
	if e.notifier == nil || !hasCallback(callbackURL) {
		return
	}
	e.notifier.Notify(callbackURL, payload)
}

func hasCallback(url string) bool {
	return strings.TrimSpace(url) != ""
}

func filter(movies []domain.Movie, keep func(domain.Movie) bool) []domain.Movie {
	out := make([]domain.Movie, 0)
	for _, m := range movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func containsPerson(people []domain.Person, p domain.Person) bool {
	for _, existing := range people {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}
