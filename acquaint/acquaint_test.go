package acquaint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitriikuleshov/vkscope/account"
)

// yesJudge approves everything; errJudge always fails.
type yesJudge struct{}

func (yesJudge) Compatible(context.Context, string, string) (bool, error) { return true, nil }

type errJudge struct{}

func (errJudge) Compatible(context.Context, string, string) (bool, error) {
	return false, account.ErrExternalService
}

// pickyJudge approves only candidates whose interests match want.
type pickyJudge struct{ want string }

func (j pickyJudge) Compatible(_ context.Context, _, candInterests string) (bool, error) {
	return candInterests == j.want, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seeded() Option {
	return WithRand(rand.New(rand.NewSource(1)))
}

func ru(title string) *Locality { return &Locality{Title: title} }

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	raw := `[{"id":7,"first_name":"Anna","last_name":"K","interests":"chess",
		"country":{"title":"Россия"},"city":{"title":"Москва"},"photo_50":"x.jpg"}]`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 || got[0].City.Title != "Москва" {
		t.Errorf("LoadDataset = %+v", got)
	}
}

func TestLoadDatasetMissing(t *testing.T) {
	if _, err := LoadDataset(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadDataset on a missing file should fail")
	}
}

func TestRecommendSkipsSelfAndDuplicates(t *testing.T) {
	candidates := []Candidate{
		{ID: 42, FirstName: "Self", Interests: "chess"},
		{ID: 7, FirstName: "Anna", Interests: "chess"},
		{ID: 7, FirstName: "Anna", Interests: "chess"}, // harvested twice
		{ID: 8, FirstName: "Boris", Interests: "chess"},
	}
	m := New(yesJudge{}, candidates, WithLogger(quiet()), seeded())
	p := &account.Profile{ID: 42, Interests: "chess"}

	got, err := m.Recommend(context.Background(), p, 10, false, false)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2: %+v", len(got), got)
	}
	seen := make(map[string]struct{})
	for _, match := range got {
		if match.Link == account.ID(42).URL() {
			t.Error("own profile recommended")
		}
		if _, dup := seen[match.Link]; dup {
			t.Errorf("duplicate recommendation %q", match.Link)
		}
		seen[match.Link] = struct{}{}
	}
}

func TestRecommendCapsResults(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Interests: "a"}, {ID: 2, Interests: "b"}, {ID: 3, Interests: "c"},
	}
	p := &account.Profile{ID: 42, Interests: "chess"}

	tests := []struct {
		name       string
		maxResults int
		want       int
	}{
		{"below dataset size", 2, 2},
		{"above dataset size", 10, 3},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(yesJudge{}, candidates, WithLogger(quiet()), seeded())
			got, err := m.Recommend(context.Background(), p, tt.maxResults, false, false)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("matches = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRecommendLocalityFilters(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Interests: "x", Country: ru("Россия"), City: ru("Москва")},
		{ID: 2, Interests: "x", Country: ru("Россия"), City: ru("Казань")},
		{ID: 3, Interests: "x", Country: ru("Беларусь"), City: ru("Минск")},
		{ID: 4, Interests: "x"}, // no locality data at all
	}
	p := &account.Profile{ID: 42, Interests: "chess", Country: "Россия", City: "Москва"}

	tests := []struct {
		name         string
		matchCountry bool
		matchCity    bool
		unlocated    bool
		wantIDs      map[int64]bool
	}{
		{"no filters", false, false, false, map[int64]bool{1: true, 2: true, 3: true, 4: true}},
		{"country", true, false, false, map[int64]bool{1: true, 2: true}},
		{"country and city", true, true, false, map[int64]bool{1: true}},
		{"country with unlocated", true, false, true, map[int64]bool{1: true, 2: true, 4: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithLogger(quiet()), seeded()}
			if tt.unlocated {
				opts = append(opts, WithUnlocated())
			}
			m := New(yesJudge{}, candidates, opts...)

			got, err := m.Recommend(context.Background(), p, 10, tt.matchCountry, tt.matchCity)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("matches = %d, want %d: %+v", len(got), len(tt.wantIDs), got)
			}
			for _, match := range got {
				found := false
				for id := range tt.wantIDs {
					if match.Link == account.ID(id).URL() {
						found = true
					}
				}
				if !found {
					t.Errorf("unexpected match %+v", match)
				}
			}
		})
	}
}

func TestRecommendJudgeVerdicts(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, FirstName: "A", Interests: "chess"},
		{ID: 2, FirstName: "B", Interests: "stamps"},
	}
	m := New(pickyJudge{want: "chess"}, candidates, WithLogger(quiet()), seeded())
	p := &account.Profile{ID: 42, Interests: "chess"}

	got, err := m.Recommend(context.Background(), p, 10, false, false)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 1 || got[0].Interests != "chess" {
		t.Errorf("matches = %+v, want the chess candidate only", got)
	}
}

// Without interests to judge on, a shared city stands in for the verdict.
func TestRecommendCityFallback(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, FirstName: "A", City: ru("Москва")},
		{ID: 2, FirstName: "B", City: ru("Казань")},
		{ID: 3, FirstName: "C"},
	}
	// errJudge proves the judge is never consulted on this path.
	m := New(errJudge{}, candidates, WithLogger(quiet()), seeded())
	p := &account.Profile{ID: 42, City: "Москва"}

	got, err := m.Recommend(context.Background(), p, 10, false, false)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 1 || got[0].Link != account.ID(1).URL() {
		t.Errorf("matches = %+v, want the Moscow candidate only", got)
	}
}

func TestRecommendJudgeErrorPropagates(t *testing.T) {
	m := New(errJudge{}, []Candidate{{ID: 1, Interests: "x"}}, WithLogger(quiet()), seeded())
	p := &account.Profile{ID: 42, Interests: "chess"}

	_, err := m.Recommend(context.Background(), p, 10, false, false)
	if !errors.Is(err, account.ErrExternalService) {
		t.Errorf("error = %v, want ErrExternalService", err)
	}
}
