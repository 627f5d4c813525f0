package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/config"
	"github.com/Clark-Hu/movie-oscars/internal/domain"
	"github.com/Clark-Hu/movie-oscars/internal/oscars"
)

type engineCall struct {
	op       string
	id       int64
	minLen   float64
	max      int64
	delta    int64
	callback string
	page     int
	size     int
}

type stubEngine struct {
	mu      sync.Mutex
	calls   []engineCall
	losers  []domain.Person
	awards  []domain.Award
	summary domain.UpdateSummary
	revoked bool
}

func (s *stubEngine) record(c engineCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *stubEngine) last(t *testing.T) engineCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls, "engine was not called")
	return s.calls[len(s.calls)-1]
}

func (s *stubEngine) ListAwardLosers(ctx context.Context) []domain.Person {
	s.record(engineCall{op: "losers"})
	return s.losers
}

func (s *stubEngine) HonorByLength(ctx context.Context, minLength float64, delta int64, cb string) domain.UpdateSummary {
	s.record(engineCall{op: "length", minLen: minLength, delta: delta, callback: cb})
	return s.summary
}

func (s *stubEngine) HonorByLowCount(ctx context.Context, maxCount, delta int64, cb string) domain.UpdateSummary {
	s.record(engineCall{op: "low", max: maxCount, delta: delta, callback: cb})
	return s.summary
}

func (s *stubEngine) DeriveAwards(ctx context.Context, id int64, page, size int) []domain.Award {
	s.record(engineCall{op: "awards", id: id, page: page, size: size})
	return s.awards
}

func (s *stubEngine) AddOscars(ctx context.Context, id, delta int64, cb string) domain.UpdateSummary {
	s.record(engineCall{op: "add", id: id, delta: delta, callback: cb})
	return s.summary
}

func (s *stubEngine) RevokeAllOscars(ctx context.Context, id int64) bool {
	s.record(engineCall{op: "revoke", id: id})
	return s.revoked
}

func newOscarsTestServer(engine OscarsEngine, client catalog.Client) *Server {
	cfg := config.Oscars{Server: config.Server{Port: "0", ReadTimeoutSecs: 1, WriteTimeoutSecs: 1, IdleTimeoutSecs: 1}}
	return NewOscars(cfg, engine, client, nil, zap.NewNop())
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestOscarsLosers(t *testing.T) {
	engine := &stubEngine{}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodGet, "/oscars/operators/losers", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	engine.losers = []domain.Person{{Name: "Ann", PassportID: "A-1"}}
	rec = do(t, srv, http.MethodGet, "/oscars/operators/losers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var people []catalog.PersonDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "Ann", people[0].Name)
	assert.Equal(t, "A-1", people[0].PassportID)
}

func TestOscarsHonorByLength(t *testing.T) {
	engine := &stubEngine{summary: domain.EmptySummary()}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodPost, "/oscars/movies/honor-by-length/12.5?oscarsToAdd=2", `{"callbackUrl":" http://cb/x "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	call := engine.last(t)
	assert.Equal(t, "length", call.op)
	assert.Equal(t, 12.5, call.minLen)
	assert.EqualValues(t, 2, call.delta)
	assert.Equal(t, "http://cb/x", call.callback)

	var summary updateSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Zero(t, summary.UpdatedCount)
	assert.NotNil(t, summary.UpdatedMovies)
	assert.Contains(t, rec.Body.String(), `"updatedMovies":[]`)
}

func TestOscarsHonorByLengthWithoutBody(t *testing.T) {
	engine := &stubEngine{summary: domain.EmptySummary()}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodPost, "/oscars/movies/honor-by-length/0?oscarsToAdd=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, engine.last(t).callback)
}

func TestOscarsHonorLowOscars(t *testing.T) {
	five := int64(5)
	engine := &stubEngine{summary: domain.UpdateSummary{
		UpdatedCount:  1,
		UpdatedMovies: []domain.Movie{{ID: 3, Name: "Up", OscarsCount: &five}},
	}}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodPost, "/oscars/movies/honor-low-oscars?maxOscars=1&oscarsToAdd=4", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	call := engine.last(t)
	assert.Equal(t, "low", call.op)
	assert.EqualValues(t, 1, call.max)
	assert.EqualValues(t, 4, call.delta)

	var summary updateSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.UpdatedCount)
	require.Len(t, summary.UpdatedMovies, 1)
	assert.EqualValues(t, 5, *summary.UpdatedMovies[0].OscarsCount)
}

func TestOscarsAwards(t *testing.T) {
	engine := &stubEngine{}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodGet, "/oscars/movies/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	call := engine.last(t)
	assert.EqualValues(t, 7, call.id)
	assert.Equal(t, defaultAwardPage, call.page)
	assert.Equal(t, defaultAwardSize, call.size)

	engine.awards = []domain.Award{{AwardID: 1, Date: oscars.AwardDate, Category: oscars.AwardCategory}}
	rec = do(t, srv, http.MethodGet, "/oscars/movies/7?page=2&size=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, engine.last(t).page)
	assert.Equal(t, 5, engine.last(t).size)
	assert.JSONEq(t, `[{"awardId":1,"date":"2024-01-01","category":"Best Picture"}]`, rec.Body.String())
}

func TestOscarsAddAndRevoke(t *testing.T) {
	engine := &stubEngine{summary: domain.EmptySummary()}
	srv := newOscarsTestServer(engine, nil)

	rec := do(t, srv, http.MethodPost, "/oscars/movies/4?oscarsToAdd=3", `{"callbackUrl":"http://cb"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	call := engine.last(t)
	assert.Equal(t, "add", call.op)
	assert.EqualValues(t, 4, call.id)
	assert.EqualValues(t, 3, call.delta)
	assert.Equal(t, "http://cb", call.callback)

	rec = do(t, srv, http.MethodDelete, "/oscars/movies/4", "")
	assert.Equal(t, http.StatusNotModified, rec.Code)

	engine.revoked = true
	rec = do(t, srv, http.MethodDelete, "/oscars/movies/4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOscarsValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"negative min length", http.MethodPost, "/oscars/movies/honor-by-length/-1?oscarsToAdd=1", "", http.StatusUnprocessableEntity},
		{"non numeric min length", http.MethodPost, "/oscars/movies/honor-by-length/abc?oscarsToAdd=1", "", http.StatusUnprocessableEntity},
		{"missing oscarsToAdd", http.MethodPost, "/oscars/movies/honor-by-length/5", "", http.StatusUnprocessableEntity},
		{"negative oscarsToAdd", http.MethodPost, "/oscars/movies/honor-low-oscars?maxOscars=1&oscarsToAdd=-2", "", http.StatusUnprocessableEntity},
		{"negative maxOscars", http.MethodPost, "/oscars/movies/honor-low-oscars?maxOscars=-1&oscarsToAdd=2", "", http.StatusUnprocessableEntity},
		{"zero movie id", http.MethodGet, "/oscars/movies/0", "", http.StatusUnprocessableEntity},
		{"text movie id", http.MethodDelete, "/oscars/movies/abc", "", http.StatusUnprocessableEntity},
		{"zero page", http.MethodGet, "/oscars/movies/1?page=0", "", http.StatusUnprocessableEntity},
		{"bad size", http.MethodGet, "/oscars/movies/1?size=x", "", http.StatusUnprocessableEntity},
		{"add negative", http.MethodPost, "/oscars/movies/1?oscarsToAdd=-1", "", http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/oscars/movies/1?oscarsToAdd=1", `{"callbackUrl":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/oscars/movies/1?oscarsToAdd=1", `{"url":"x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{}
			srv := newOscarsTestServer(engine, nil)
			rec := do(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, messageOf(t, rec))
			assert.Empty(t, engine.calls, "engine must not run on invalid input")
		})
	}
}

// memoryCatalog is a minimal in-process catalog HTTP API.
type memoryCatalog struct {
	mu     sync.Mutex
	movies map[int64]catalog.MovieDTO
	order  []int64
}

func newMemoryCatalog(movies ...catalog.MovieDTO) *memoryCatalog {
	c := &memoryCatalog{movies: make(map[int64]catalog.MovieDTO)}
	for _, m := range movies {
		c.movies[m.ID] = m
		c.order = append(c.order, m.ID)
	}
	return c
}

func (c *memoryCatalog) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/movies", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		out := make([]catalog.MovieDTO, 0)
		for i := (page - 1) * size; i >= 0 && i < len(c.order) && len(out) < size; i++ {
			out = append(out, c.movies[c.order[i]])
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	r.Get("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		m, ok := c.movies[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(m)
	})
	r.Put("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		m, ok := c.movies[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var patch catalog.PatchDTO
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if patch.OscarsCount != nil {
			m.OscarsCount = patch.OscarsCount
		}
		c.movies[id] = m
		_ = json.NewEncoder(w).Encode(m)
	})
	return r
}

func TestOscarsEndToEndWithCatalog(t *testing.T) {
	one, zero := int64(1), int64(0)
	x, y := int64(10), 5.0
	store := newMemoryCatalog(
		catalog.MovieDTO{ID: 1, Name: "Long", Coordinates: &catalog.CoordinatesDTO{X: &x, Y: &y}, OscarsCount: &one},
		catalog.MovieDTO{ID: 2, Name: "Loser", OscarsCount: &zero, Screenwriter: &catalog.PersonDTO{Name: "Bo", PassportID: "B"}},
	)
	upstream := httptest.NewServer(store.routes())
	defer upstream.Close()

	client, err := catalog.NewHTTPClient(upstream.URL, 0, 1, zap.NewNop())
	require.NoError(t, err)
	engine := oscars.NewEngine(client, nil, zap.NewNop())
	srv := newOscarsTestServer(engine, client)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/oscars/operators/losers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"passportID":"B"`)

	rec = do(t, srv, http.MethodPost, "/oscars/movies/honor-by-length/14?oscarsToAdd=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary updateSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.UpdatedCount)
	assert.EqualValues(t, 3, *summary.UpdatedMovies[0].OscarsCount)

	rec = do(t, srv, http.MethodGet, "/oscars/movies/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var awards []awardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &awards))
	assert.Len(t, awards, 3)

	rec = do(t, srv, http.MethodDelete, "/oscars/movies/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/oscars/movies/1", "")
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(t, srv, http.MethodPost, "/oscars/movies/99?oscarsToAdd=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updatedCount":0`)
}

func TestOscarsHealthzCatalogDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	client, err := catalog.NewHTTPClient(upstream.URL, 0, 0, zap.NewNop())
	require.NoError(t, err)
	srv := newOscarsTestServer(&stubEngine{}, client)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
