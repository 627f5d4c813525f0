package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

// MovieDTO is the JSON shape of a movie on the catalog API.
type MovieDTO struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Coordinates     *CoordinatesDTO `json:"coordinates"`
	CreationDate    *string         `json:"creationDate"`
	OscarsCount     *int64          `json:"oscarsCount"`
	GoldenPalmCount *int64          `json:"goldenPalmCount"`
	Budget          *json.Number    `json:"budget"`
	Genre           *string         `json:"genre"`
	Screenwriter    *PersonDTO      `json:"screenwriter"`
}

// CoordinatesDTO is the JSON shape of movie coordinates.
type CoordinatesDTO struct {
	X *int64   `json:"x"`
	Y *float64 `json:"y"`
}

// PersonDTO is the JSON shape of a person.
type PersonDTO struct {
	Name       string   `json:"name"`
	Birthday   *string  `json:"birthday"`
	Height     *float64 `json:"height"`
	Weight     *int64   `json:"weight"`
	PassportID string   `json:"passportID"`
}

// PatchDTO is the merge-patch body sent to PUT /movies/{id}. Omitted fields are left as stored.
type PatchDTO struct {
	Name            *string         `json:"name,omitempty"`
	Coordinates     *CoordinatesDTO `json:"coordinates,omitempty"`
	OscarsCount     *int64          `json:"oscarsCount,omitempty"`
	GoldenPalmCount *int64          `json:"goldenPalmCount,omitempty"`
	Budget          *json.Number    `json:"budget,omitempty"`
	Genre           *string         `json:"genre,omitempty"`
	Screenwriter    *PersonDTO      `json:"screenwriter,omitempty"`
}

// ToMovieDTO renders a domain movie for the wire.
func ToMovieDTO(m domain.Movie) MovieDTO {
	dto := MovieDTO{
		ID:              m.ID,
		Name:            m.Name,
		Coordinates:     toCoordinatesDTO(m.Coordinates),
		OscarsCount:     m.OscarsCount,
		GoldenPalmCount: m.GoldenPalmCount,
		Budget:          toNumber(m.Budget),
		Screenwriter:    ToPersonDTO(m.Screenwriter),
	}
	if !m.CreationDate.IsZero() {
		date := m.CreationDate.Format(domain.DateLayout)
		dto.CreationDate = &date
	}
	if m.Genre != nil {
		genre := string(*m.Genre)
		dto.Genre = &genre
	}
	return dto
}

// ToMovieDTOs renders a slice of movies, never returning nil.
func ToMovieDTOs(movies []domain.Movie) []MovieDTO {
	out := make([]MovieDTO, 0, len(movies))
	for _, m := range movies {
		out = append(out, ToMovieDTO(m))
	}
	return out
}

// ToPersonDTO renders a person for the wire; nil stays nil.
func ToPersonDTO(p *domain.Person) *PersonDTO {
	if p == nil {
		return nil
	}
	dto := &PersonDTO{
		Name:       p.Name,
		Height:     p.Height,
		Weight:     p.Weight,
		PassportID: p.PassportID,
	}
	if p.Birthday != nil {
		b := p.Birthday.Format(domain.DateLayout)
		dto.Birthday = &b
	}
	return dto
}

// ToPatchDTO renders a merge patch for the wire.
func ToPatchDTO(p domain.Patch) PatchDTO {
	dto := PatchDTO{
		Name:            p.Name,
		Coordinates:     toCoordinatesDTO(p.Coordinates),
		OscarsCount:     p.OscarsCount,
		GoldenPalmCount: p.GoldenPalmCount,
		Budget:          toNumber(p.Budget),
		Screenwriter:    ToPersonDTO(p.Screenwriter),
	}
	if p.Genre != nil {
		genre := string(*p.Genre)
		dto.Genre = &genre
	}
	return dto
}

// Domain converts a wire movie into the domain model.
func (dto MovieDTO) Domain() (domain.Movie, error) {
	movie := domain.Movie{
		ID:              dto.ID,
		Name:            dto.Name,
		Coordinates:     dto.Coordinates.domain(),
		OscarsCount:     dto.OscarsCount,
		GoldenPalmCount: dto.GoldenPalmCount,
	}
	if dto.CreationDate != nil && *dto.CreationDate != "" {
		created, err := time.Parse(domain.DateLayout, *dto.CreationDate)
		if err != nil {
			return domain.Movie{}, fmt.Errorf("creationDate: %w", err)
		}
		movie.CreationDate = created
	}
	budget, err := parseNumber(dto.Budget)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("budget: %w", err)
	}
	movie.Budget = budget
	genre, err := parseGenre(dto.Genre)
	if err != nil {
		return domain.Movie{}, err
	}
	movie.Genre = genre
	person, err := dto.Screenwriter.Domain()
	if err != nil {
		return domain.Movie{}, fmt.Errorf("screenwriter: %w", err)
	}
	movie.Screenwriter = person
	return movie, nil
}

// Domain converts a wire patch into the domain model.
func (dto PatchDTO) Domain() (domain.Patch, error) {
	patch := domain.Patch{
		Name:            dto.Name,
		Coordinates:     dto.Coordinates.domain(),
		OscarsCount:     dto.OscarsCount,
		GoldenPalmCount: dto.GoldenPalmCount,
	}
	budget, err := parseNumber(dto.Budget)
	if err != nil {
		return domain.Patch{}, fmt.Errorf("budget: %w", err)
	}
	patch.Budget = budget
	genre, err := parseGenre(dto.Genre)
	if err != nil {
		return domain.Patch{}, err
	}
	patch.Genre = genre
	person, err := dto.Screenwriter.Domain()
	if err != nil {
		return domain.Patch{}, fmt.Errorf("screenwriter: %w", err)
	}
	patch.Screenwriter = person
	return patch, nil
}

// Domain converts a wire person into the domain model; nil stays nil.
func (dto *PersonDTO) Domain() (*domain.Person, error) {
	if dto == nil {
		return nil, nil
	}
	p := &domain.Person{
		Name:       dto.Name,
		Height:     dto.Height,
		Weight:     dto.Weight,
		PassportID: dto.PassportID,
	}
	if dto.Birthday != nil && *dto.Birthday != "" {
		b, err := time.Parse(domain.DateLayout, *dto.Birthday)
		if err != nil {
			return nil, fmt.Errorf("birthday: %w", err)
		}
		p.Birthday = &b
	}
	return p, nil
}

func (dto *CoordinatesDTO) domain() *domain.Coordinates {
	if dto == nil {
		return nil
	}
	return &domain.Coordinates{X: dto.X, Y: dto.Y}
}

func toCoordinatesDTO(c *domain.Coordinates) *CoordinatesDTO {
	if c == nil {
		return nil
	}
	return &CoordinatesDTO{X: c.X, Y: c.Y}
}

func toNumber(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.String())
	return &n
}

func parseNumber(n *json.Number) (*decimal.Decimal, error) {
	if n == nil || *n == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseGenre(raw *string) (*domain.Genre, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	g, ok := domain.ParseGenre(*raw)
	if !ok {
		return nil, fmt.Errorf("genre: unknown value %q", *raw)
	}
	return &g, nil
}
