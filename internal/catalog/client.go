package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

// ErrNotFound is reported when the catalog has no movie with the requested id.
var ErrNotFound = errors.New("catalog: not found")

// DefaultPageSize is the page size used when walking the whole catalog.
const DefaultPageSize = 100

// Outcome tags the result of a single-record catalog call.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	TransientError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "transient_error"
	}
}

// Lookup is the tagged result of Get and Patch.
type Lookup struct {
	Outcome Outcome
	Movie   domain.Movie
	Err     error
}

// OK reports whether the lookup produced a movie.
func (l Lookup) OK() bool {
	return l.Outcome == Found
}

// PageQuery selects one page of the catalog listing. Page is 1-based.
type PageQuery struct {
	Name  string
	Genre string
	Sort  string
	Page  int
	Size  int
}

// Client defines the contract for talking to the remote movie catalog.
type Client interface {
	Get(ctx context.Context, id int64) Lookup
	Page(ctx context.Context, q PageQuery) ([]domain.Movie, error)
	All(ctx context.Context) ([]domain.Movie, error)
	Patch(ctx context.Context, id int64, patch domain.Patch) Lookup
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL  *url.URL
	client   *http.Client
	pageSize int
	logger   *zap.Logger
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(baseURL string, timeout time.Duration, pageSize int, logger *zap.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse catalog url: %q is not absolute", baseURL)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HTTPClient{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		pageSize: pageSize,
		logger:   logger.Named("catalog"),
	}, nil
}

// Get fetches one movie by id.
func (c *HTTPClient) Get(ctx context.Context, id int64) Lookup {
	return c.exchange(ctx, http.MethodGet, c.movieURL(id), nil, id)
}

// Patch submits a merge patch for a movie and returns the stored result.
func (c *HTTPClient) Patch(ctx context.Context, id int64, patch domain.Patch) Lookup {
	body, err := json.Marshal(ToPatchDTO(patch))
	if err != nil {
		return Lookup{Outcome: TransientError, Err: fmt.Errorf("encode patch: %w", err)}
	}
	lookup := c.exchange(ctx, http.MethodPut, c.movieURL(id), body, id)
	if lookup.OK() {
		c.logger.Info("patched movie",
			zap.Int64("movie_id", id),
			zap.Int64p("oscars_count", lookup.Movie.OscarsCount))
	}
	return lookup
}

// Page fetches a single page of the catalog listing.
func (c *HTTPClient) Page(ctx context.Context, q PageQuery) ([]domain.Movie, error) {
	endpoint := c.resolve("/movies")
	params := endpoint.Query()
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	if q.Genre != "" {
		params.Set("genre", q.Genre)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	endpoint.RawQuery = params.Encode()

	resp, err := c.do(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: list returned %d", resp.StatusCode)
	}
	var payload []MovieDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode movie page: %w", err)
	}
	movies := make([]domain.Movie, 0, len(payload))
	for _, dto := range payload {
		movie, err := dto.Domain()
		if err != nil {
			return nil, fmt.Errorf("decode movie %d: %w", dto.ID, err)
		}
		movies = append(movies, movie)
	}
	return movies, nil
}

// All walks the catalog page by page until an empty page comes back.
// A failed page counts as empty: the movies gathered so far are returned
// together with the error that ended the walk.
func (c *HTTPClient) All(ctx context.Context) ([]domain.Movie, error) {
	all := make([]domain.Movie, 0)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		movies, err := c.Page(ctx, PageQuery{Page: page, Size: c.pageSize})
		if err != nil {
			c.logger.Warn("list page failed", zap.Int("page", page), zap.Error(err))
			return all, err
		}
		if len(movies) == 0 {
			break
		}
		all = append(all, movies...)
	}
	c.logger.Info("retrieved catalog", zap.Int("movies", len(all)))
	return all, nil
}

func (c *HTTPClient) exchange(ctx context.Context, method, endpoint string, body []byte, id int64) Lookup {
	resp, err := c.do(ctx, method, endpoint, body)
	if err != nil {
		return Lookup{Outcome: TransientError, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var dto MovieDTO
		if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
			return Lookup{Outcome: TransientError, Err: fmt.Errorf("decode movie %d: %w", id, err)}
		}
		movie, err := dto.Domain()
		if err != nil {
			return Lookup{Outcome: TransientError, Err: fmt.Errorf("decode movie %d: %w", id, err)}
		}
		return Lookup{Outcome: Found, Movie: movie}
	case http.StatusNotFound:
		return Lookup{Outcome: NotFound, Err: ErrNotFound}
	default:
		return Lookup{Outcome: TransientError, Err: fmt.Errorf("catalog: %s movie %d returned %d", method, id, resp.StatusCode)}
	}
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (c *HTTPClient) movieURL(id int64) string {
	return c.resolve("/movies/" + strconv.FormatInt(id, 10)).String()
}

func (c *HTTPClient) resolve(path string) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	return &u
}
