package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, 2*time.Second, 2, zap.NewNop())
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient("movies.local", time.Second, 0, nil)
	require.Error(t, err)
}

func TestHTTPClient_GetOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movies/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":           1,
			"name":         "Heat",
			"creationDate": "2024-01-01",
			"oscarsCount":  2,
			"budget":       1000000.5,
			"genre":        "ACTION",
			"coordinates":  map[string]any{"x": 3, "y": 4.5},
			"screenwriter": map[string]any{"name": "Michael Mann", "passportID": "MM1", "birthday": "1943-02-05"},
		})
	})
	mux.HandleFunc("/movies/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})
	mux.HandleFunc("/movies/3", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/movies/4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	found := client.Get(ctx, 1)
	require.Equal(t, Found, found.Outcome)
	assert.Equal(t, "Heat", found.Movie.Name)
	require.NotNil(t, found.Movie.OscarsCount)
	assert.EqualValues(t, 2, *found.Movie.OscarsCount)
	require.NotNil(t, found.Movie.Budget)
	assert.Equal(t, "1000000.5", found.Movie.Budget.String())
	require.NotNil(t, found.Movie.Screenwriter)
	assert.Equal(t, "MM1", found.Movie.Screenwriter.PassportID)
	assert.Nil(t, found.Movie.GoldenPalmCount)

	missing := client.Get(ctx, 2)
	assert.Equal(t, NotFound, missing.Outcome)
	assert.ErrorIs(t, missing.Err, ErrNotFound)

	broken := client.Get(ctx, 3)
	assert.Equal(t, TransientError, broken.Outcome)
	assert.Error(t, broken.Err)

	garbled := client.Get(ctx, 4)
	assert.Equal(t, TransientError, garbled.Outcome)
}

func TestHTTPClient_GetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewHTTPClient(base, 500*time.Millisecond, 0, nil)
	require.NoError(t, err)

	lookup := client.Get(context.Background(), 1)
	assert.Equal(t, TransientError, lookup.Outcome)
	assert.False(t, lookup.OK())
}

func TestHTTPClient_PageForwardsQuery(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"name":  q.Get("name"),
			"genre": q.Get("genre"),
			"sort":  q.Get("sort"),
			"page":  q.Get("page"),
			"size":  q.Get("size"),
		}
		writeJSON(w, []map[string]any{{"id": 9, "name": "Alien"}})
	}))

	movies, err := client.Page(context.Background(), PageQuery{Name: "Ali", Genre: "FANTASY", Sort: "name", Page: 3, Size: 7})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.EqualValues(t, 9, movies[0].ID)
	assert.Equal(t, map[string]string{"name": "Ali", "genre": "FANTASY", "sort": "name", "page": "3", "size": "7"}, got)
}

func TestHTTPClient_AllConcatenatesUntilEmptyPage(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []int
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size := r.URL.Query().Get("size")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		assert.Equal(t, "2", size)
		switch page {
		case 1:
			writeJSON(w, []map[string]any{{"id": 1, "name": "a"}, {"id": 2, "name": "b"}})
		case 2:
			writeJSON(w, []map[string]any{{"id": 3, "name": "c"}})
		default:
			writeJSON(w, []map[string]any{})
		}
	}))

	movies, err := client.All(context.Background())
	require.NoError(t, err)
	ids := make([]int64, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestHTTPClient_AllStopsOnFailedPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			writeJSON(w, []map[string]any{{"id": 1, "name": "a"}})
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	}))

	movies, err := client.All(context.Background())
	require.Error(t, err)
	require.Len(t, movies, 1)
	assert.EqualValues(t, 1, movies[0].ID)
}

func TestHTTPClient_PatchSendsFullSnapshot(t *testing.T) {
	var body map[string]json.RawMessage
	var method string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{"id": 5, "name": "Patched", "oscarsCount": 4})
	}))

	x := int64(10)
	movie := domain.Movie{ID: 5, Name: "Patched", Coordinates: &domain.Coordinates{X: &x}}
	lookup := client.Patch(context.Background(), 5, domain.PatchWithOscars(movie, 4))

	require.True(t, lookup.OK())
	assert.Equal(t, http.MethodPut, method)
	assert.JSONEq(t, `4`, string(body["oscarsCount"]))
	assert.JSONEq(t, `"Patched"`, string(body["name"]))
	assert.JSONEq(t, `{"x":10,"y":null}`, string(body["coordinates"]))
	_, hasPalms := body["goldenPalmCount"]
	assert.False(t, hasPalms, "absent fields must stay absent")
	_, hasWriter := body["screenwriter"]
	assert.False(t, hasWriter)
}

func TestHTTPClient_PatchFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, fmt.Sprintf("invalid %s", r.URL.Path), http.StatusUnprocessableEntity)
	}))

	lookup := client.Patch(context.Background(), 5, domain.Patch{})
	assert.Equal(t, TransientError, lookup.Outcome)
}
