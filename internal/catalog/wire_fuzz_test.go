package catalog

import (
	"encoding/json"
	"testing"
)

func FuzzMovieDTODomain(f *testing.F) {
	f.Add(int64(1), "2024-01-01", "1000000.50", "ACTION", "1980-01-01")
	f.Add(int64(0), "", "", "", "")
	f.Add(int64(-4), "01/02/2024", "NaN", "COMEDY", "yesterday")

	f.Fuzz(func(t *testing.T, oscars int64, created, budget, genre, birthday string) {
		dto := MovieDTO{
			ID:           1,
			Name:         "fuzz",
			CreationDate: optionalString(created),
			OscarsCount:  &oscars,
			Genre:        optionalString(genre),
			Screenwriter: &PersonDTO{Name: "w", PassportID: "p", Birthday: optionalString(birthday)},
		}
		if budget != "" {
			n := json.Number(budget)
			dto.Budget = &n
		}

		movie, err := dto.Domain()
		if err != nil {
			return
		}
		if movie.OscarsCount == nil || *movie.OscarsCount != oscars {
			t.Fatalf("oscars count not preserved")
		}
		if movie.Genre != nil && !movie.Genre.Valid() {
			t.Fatalf("invalid genre accepted: %q", *movie.Genre)
		}
		back := ToMovieDTO(movie)
		if _, err := back.Domain(); err != nil {
			t.Fatalf("re-decoding rendered movie failed: %v", err)
		}
	})
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
