package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Genre enumerates the catalog's movie genres.
type Genre string

const (
	GenreAction    Genre = "ACTION"
	GenreAdventure Genre = "ADVENTURE"
	GenreTragedy   Genre = "TRAGEDY"
	GenreFantasy   Genre = "FANTASY"
)

// Valid reports whether g is one of the known genres.
func (g Genre) Valid() bool {
	switch g {
	case GenreAction, GenreAdventure, GenreTragedy, GenreFantasy:
		return true
	}
	return false
}

// ParseGenre validates a textual genre.
func ParseGenre(raw string) (Genre, bool) {
	g := Genre(raw)
	return g, g.Valid()
}

// Coordinates locate a movie. Either axis may be absent.
type Coordinates struct {
	X *int64
	Y *float64
}

// Person is a screenwriter (or any other credited person). It is a value
// type: two persons are the same person when every field matches.
type Person struct {
	Name       string
	Birthday   *time.Time
	Height     *float64
	Weight     *int64
	PassportID string
}

// Equal compares persons by value, dereferencing optional fields.
func (p Person) Equal(o Person) bool {
	return p.Name == o.Name &&
		p.PassportID == o.PassportID &&
		equalDate(p.Birthday, o.Birthday) &&
		equalPtr(p.Height, o.Height) &&
		equalPtr(p.Weight, o.Weight)
}

// Movie is the catalog's movie record.
type Movie struct {
	ID              int64
	Name            string
	Coordinates     *Coordinates
	CreationDate    time.Time
	OscarsCount     *int64
	GoldenPalmCount *int64
	Budget          *decimal.Decimal
	Genre           *Genre
	Screenwriter    *Person
}

// Oscars returns the oscars count with an absent value read as zero.
func (m Movie) Oscars() int64 {
	if m.OscarsCount == nil {
		return 0
	}
	return *m.OscarsCount
}

// Patch carries a merge update for a movie; nil fields are left untouched by the catalog.
type Patch struct {
	Name            *string
	Coordinates     *Coordinates
	OscarsCount     *int64
	GoldenPalmCount *int64
	Budget          *decimal.Decimal
	Genre           *Genre
	Screenwriter    *Person
}

// PatchWithOscars snapshots every current field of m and replaces only the
// oscars count with count. Fields absent on m stay absent on the patch.
func PatchWithOscars(m Movie, count int64) Patch {
	name := m.Name
	return Patch{
		Name:            &name,
		Coordinates:     cloneCoordinates(m.Coordinates),
		OscarsCount:     &count,
		GoldenPalmCount: clonePtr(m.GoldenPalmCount),
		Budget:          clonePtr(m.Budget),
		Genre:           clonePtr(m.Genre),
		Screenwriter:    clonePerson(m.Screenwriter),
	}
}

// UpdateSummary is the result of every mutating oscars operation.
type UpdateSummary struct {
	UpdatedCount  int
	UpdatedMovies []Movie
}

// EmptySummary reports that nothing was updated.
func EmptySummary() UpdateSummary {
	return UpdateSummary{UpdatedMovies: []Movie{}}
}

// Award is a synthetic oscar entry derived from a movie's count.
type Award struct {
	AwardID  int
	Date     string
	Category string
}

func cloneCoordinates(c *Coordinates) *Coordinates {
	if c == nil {
		return nil
	}
	return &Coordinates{X: clonePtr(c.X), Y: clonePtr(c.Y)}
}

func clonePerson(p *Person) *Person {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Birthday = clonePtr(p.Birthday)
	cp.Height = clonePtr(p.Height)
	cp.Weight = clonePtr(p.Weight)
	return &cp
}

func clonePtr[T any](ptr *T) *T {
	if ptr == nil {
		return nil
	}
	v := *ptr
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(DateLayout) == b.Format(DateLayout)
}
