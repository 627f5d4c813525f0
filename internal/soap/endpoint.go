package soap

import (
	"context"
	"encoding/xml"
	"errors"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Default paging for getOscarsByMovieRequest.
const (
	defaultPage = 1
	defaultSize = 20
)

// Engine is the orchestration surface the SOAP endpoint drives.
type Engine interface {
	ListAwardLosers(ctx context.Context) []domain.Person
	HonorByLength(ctx context.Context, minLength float64, delta int64, callbackURL string) domain.UpdateSummary
	HonorByLowCount(ctx context.Context, maxCount, delta int64, callbackURL string) domain.UpdateSummary
	DeriveAwards(ctx context.Context, movieID int64, page, size int) []domain.Award
	AddOscars(ctx context.Context, movieID, delta int64, callbackURL string) domain.UpdateSummary
	RevokeAllOscars(ctx context.Context, movieID int64) bool
}

type operation func(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error)

// Endpoint serves SOAP requests. Document calls carry no callback URL, so
// operations invoked here never schedule notifications.
type Endpoint struct {
	engine Engine
	logger *zap.Logger
	ops    map[string]operation
}

// NewEndpoint builds an endpoint over engine.
func NewEndpoint(engine Engine, logger *zap.Logger) *Endpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Endpoint{engine: engine, logger: logger.Named("soap")}
	e.ops = map[string]operation{
		"getOscarLosersRequest":           e.getOscarLosers,
		"honorMoviesByLengthRequest":      e.honorMoviesByLength,
		"honorMoviesWithFewOscarsRequest": e.honorMoviesWithFewOscars,
		"getOscarsByMovieRequest":         e.getOscarsByMovie,
		"addOscarsRequest":                e.addOscars,
		"deleteOscarsByMovieRequest":      e.deleteOscarsByMovie,
	}
	return e
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()

	dec, start, err := openBody(body)
	if err != nil {
		e.fail(w, err)
		return
	}
	if start.Name.Space != Namespace {
		e.fail(w, clientFault("unknown namespace %q", start.Name.Space))
		return
	}
	op, ok := e.ops[start.Name.Local]
	if !ok {
		e.fail(w, clientFault("unknown operation %q", start.Name.Local))
		return
	}

	e.logger.Info("soap call", zap.String("operation", start.Name.Local))
	resp, err := op(r.Context(), dec, start)
	if err != nil {
		e.fail(w, err)
		return
	}
	e.write(w, http.StatusOK, resp)
}

func (e *Endpoint) getOscarLosers(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	if err := dec.Skip(); err != nil {
		return nil, clientFault("malformed request: %v", err)
	}
	losers := e.engine.ListAwardLosers(ctx)
	resp := losersResponse{Persons: make([]personNode, 0, len(losers))}
	for _, p := range losers {
		resp.Persons = append(resp.Persons, toPersonNode(p))
	}
	return resp, nil
}

func (e *Endpoint) honorMoviesByLength(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	var req honorByLengthRequest
	if err := decodeRequest(dec, start, &req); err != nil {
		return nil, err
	}
	if math.IsNaN(req.MinLength) || req.MinLength < 0 {
		return nil, clientFault("minLength must be non-negative")
	}
	if req.OscarsToAdd < 0 {
		return nil, clientFault("oscarsToAdd must be non-negative")
	}
	summary := e.engine.HonorByLength(ctx, req.MinLength, req.OscarsToAdd, "")
	return toUpdateResponse("honorMoviesByLength", summary), nil
}

func (e *Endpoint) honorMoviesWithFewOscars(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	var req honorWithFewOscarsRequest
	if err := decodeRequest(dec, start, &req); err != nil {
		return nil, err
	}
	if req.MaxOscars < 0 {
		return nil, clientFault("maxOscars must be non-negative")
	}
	if req.OscarsToAdd < 0 {
		return nil, clientFault("oscarsToAdd must be non-negative")
	}
	summary := e.engine.HonorByLowCount(ctx, req.MaxOscars, req.OscarsToAdd, "")
	return toUpdateResponse("honorMoviesWithFewOscars", summary), nil
}

func (e *Endpoint) getOscarsByMovie(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	req := oscarsByMovieRequest{Page: defaultPage, Size: defaultSize}
	if err := decodeRequest(dec, start, &req); err != nil {
		return nil, err
	}
	if req.MovieID < 1 {
		return nil, clientFault("movieId must be positive")
	}
	if req.Page < 1 || req.Size < 1 {
		return nil, clientFault("page and size must be positive")
	}
	awards := e.engine.DeriveAwards(ctx, req.MovieID, req.Page, req.Size)
	resp := awardsResponse{Awards: make([]awardNode, 0, len(awards))}
	for _, a := range awards {
		resp.Awards = append(resp.Awards, awardNode{AwardID: a.AwardID, Date: a.Date, Category: a.Category})
	}
	return resp, nil
}

func (e *Endpoint) addOscars(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	var req addOscarsRequest
	if err := decodeRequest(dec, start, &req); err != nil {
		return nil, err
	}
	if req.MovieID < 1 {
		return nil, clientFault("movieId must be positive")
	}
	if req.OscarsToAdd < 0 {
		return nil, clientFault("oscarsToAdd must be non-negative")
	}
	summary := e.engine.AddOscars(ctx, req.MovieID, req.OscarsToAdd, "")
	return toUpdateResponse("addOscars", summary), nil
}

func (e *Endpoint) deleteOscarsByMovie(ctx context.Context, dec *xml.Decoder, start xml.StartElement) (any, error) {
	var req deleteOscarsRequest
	if err := decodeRequest(dec, start, &req); err != nil {
		return nil, err
	}
	if req.MovieID < 1 {
		return nil, clientFault("movieId must be positive")
	}
	return deleteResponse{Deleted: e.engine.RevokeAllOscars(ctx, req.MovieID)}, nil
}

func decodeRequest(dec *xml.Decoder, start xml.StartElement, dst any) error {
	if err := dec.DecodeElement(dst, &start); err != nil {
		return clientFault("malformed %s: %v", start.Name.Local, err)
	}
	return nil
}

func (e *Endpoint) fail(w http.ResponseWriter, err error) {
	var fault *Fault
	if !errors.As(err, &fault) {
		e.logger.Error("soap call failed", zap.Error(err))
		fault = &Fault{Code: FaultServer, String: "internal error"}
	} else {
		e.logger.Info("soap fault", zap.String("code", fault.Code), zap.String("reason", fault.String))
	}
	e.write(w, http.StatusInternalServerError, fault)
}

func (e *Endpoint) write(w http.ResponseWriter, status int, content any) {
	payload, err := encodeEnvelope(content)
	if err != nil {
		e.logger.Error("encode soap response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		e.logger.Warn("write soap response", zap.Error(err))
	}
}
