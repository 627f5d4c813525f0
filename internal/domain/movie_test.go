package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchWithOscarsCopiesEveryField(t *testing.T) {
	x, y := int64(4), 1.5
	palms := int64(2)
	budget := decimal.RequireFromString("99.90")
	genre := GenreFantasy
	born := time.Date(1950, 1, 2, 0, 0, 0, 0, time.UTC)
	m := Movie{
		ID:              9,
		Name:            "Stalker",
		Coordinates:     &Coordinates{X: &x, Y: &y},
		GoldenPalmCount: &palms,
		Budget:          &budget,
		Genre:           &genre,
		Screenwriter:    &Person{Name: "Arkady", Birthday: &born, PassportID: "S-1"},
	}

	p := PatchWithOscars(m, 3)

	require.NotNil(t, p.OscarsCount)
	assert.EqualValues(t, 3, *p.OscarsCount)
	assert.Equal(t, "Stalker", *p.Name)
	assert.EqualValues(t, 4, *p.Coordinates.X)
	assert.EqualValues(t, 2, *p.GoldenPalmCount)
	assert.True(t, budget.Equal(*p.Budget))
	assert.Equal(t, GenreFantasy, *p.Genre)
	assert.True(t, m.Screenwriter.Equal(*p.Screenwriter))

	*p.Coordinates.X = 100
	*p.Screenwriter.Birthday = time.Time{}
	assert.EqualValues(t, 4, *m.Coordinates.X, "patch must not alias the source movie")
	assert.Equal(t, 1950, m.Screenwriter.Birthday.Year())
}

func TestPatchWithOscarsKeepsAbsentFieldsAbsent(t *testing.T) {
	p := PatchWithOscars(Movie{ID: 1, Name: "Bare"}, 0)

	assert.Nil(t, p.Coordinates)
	assert.Nil(t, p.GoldenPalmCount)
	assert.Nil(t, p.Budget)
	assert.Nil(t, p.Genre)
	assert.Nil(t, p.Screenwriter)
	require.NotNil(t, p.OscarsCount)
	assert.Zero(t, *p.OscarsCount)
}

func TestPersonEqual(t *testing.T) {
	h1, h2 := 180.0, 180.0
	d1 := time.Date(1970, 5, 6, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(1970, 5, 6, 0, 0, 0, 0, time.UTC)

	a := Person{Name: "A", Height: &h1, Birthday: &d1, PassportID: "X"}
	b := Person{Name: "A", Height: &h2, Birthday: &d2, PassportID: "X"}
	assert.True(t, a.Equal(b))

	c := b
	c.PassportID = "Y"
	assert.False(t, a.Equal(c))

	d := b
	d.Height = nil
	assert.False(t, a.Equal(d))
	assert.True(t, Person{Name: "A"}.Equal(Person{Name: "A"}))
}

func TestMovieOscarsReadsAbsentAsZero(t *testing.T) {
	n := int64(5)
	assert.Zero(t, Movie{}.Oscars())
	assert.EqualValues(t, 5, Movie{OscarsCount: &n}.Oscars())
}

func TestParseGenre(t *testing.T) {
	g, ok := ParseGenre("TRAGEDY")
	assert.True(t, ok)
	assert.Equal(t, GenreTragedy, g)

	_, ok = ParseGenre("tragedy")
	assert.False(t, ok)
	_, ok = ParseGenre("")
	assert.False(t, ok)
}
