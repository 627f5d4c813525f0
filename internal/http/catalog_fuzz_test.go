package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildMovieFilters(f *testing.F) {
	seeds := []string{
		"name=Alien&genre=ACTION&sort=name",
		"page=abc",
		"size=200",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		filters, err := buildMovieFilters(values)
		if err != nil {
			return
		}
		if filters.Page < 0 || filters.Size < 0 {
			t.Fatalf("negative paging accepted: %+v", filters)
		}
	})
}
