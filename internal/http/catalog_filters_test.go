package httpserver

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

func TestBuildMovieFilters(t *testing.T) {
	values, _ := url.ParseQuery("name= Alien &genre=FANTASY&sort=oscarsCount&page=2&size=150")

	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Name == nil || *filters.Name != "Alien" {
		t.Fatalf("name not trimmed: %+v", filters.Name)
	}
	if filters.Genre == nil || *filters.Genre != domain.GenreFantasy {
		t.Fatalf("genre parse failed: %+v", filters.Genre)
	}
	if filters.Sort != "oscarsCount" {
		t.Fatalf("sort = %q", filters.Sort)
	}
	if filters.Page != 2 || filters.Size != 150 {
		t.Fatalf("page/size = %d/%d, want 2/150", filters.Page, filters.Size)
	}
}

func TestBuildMovieFilters_Invalid(t *testing.T) {
	for _, raw := range []string{"genre=COMEDY", "page=0", "page=x", "size=-3"} {
		values, _ := url.ParseQuery(raw)
		if _, err := buildMovieFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestValidateMovieFields(t *testing.T) {
	neg := int64(-1)
	zero := int64(0)
	negBudget := decimal.NewFromInt(-5)
	height := 0.0
	cases := []struct {
		name  string
		patch domain.Patch
		ok    bool
	}{
		{"empty", domain.Patch{}, true},
		{"zero oscars", domain.Patch{OscarsCount: &zero}, true},
		{"negative oscars", domain.Patch{OscarsCount: &neg}, false},
		{"negative palms", domain.Patch{GoldenPalmCount: &neg}, false},
		{"negative budget", domain.Patch{Budget: &negBudget}, false},
		{"nameless writer", domain.Patch{Screenwriter: &domain.Person{PassportID: "p"}}, false},
		{"zero height", domain.Patch{Screenwriter: &domain.Person{Name: "a", PassportID: "p", Height: &height}}, false},
		{"valid writer", domain.Patch{Screenwriter: &domain.Person{Name: "a", PassportID: "p"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateMovieFields(tc.patch)
			if (err == nil) != tc.ok {
				t.Fatalf("validateMovieFields() error = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}
