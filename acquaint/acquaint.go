// Package acquaint recommends accounts to get acquainted with, filtered
// from a prebuilt dataset of harvested public profiles.
package acquaint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/dmitriikuleshov/vkscope/account"
)

// Judge delivers the binary compatibility verdict for two interest
// descriptions. Implemented by *gigachat.Client.
type Judge interface {
	Compatible(ctx context.Context, firstInterests, secondInterests string) (bool, error)
}

// Candidate is one harvested dataset entry. The shape mirrors the raw
// records the harvester stores, country and city included as the API
// returns them.
type Candidate struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Interests string    `json:"interests"`
	Country   *Locality `json:"country,omitempty"`
	City      *Locality `json:"city,omitempty"`
	Icon      string    `json:"photo_50,omitempty"`
}

// Locality is a titled place reference as the API returns it.
type Locality struct {
	Title string `json:"title"`
}

// Match is one recommendation.
type Match struct {
	Name      string `json:"name"`
	Interests string `json:"interests"`
	Link      string `json:"link"`
}

// LoadDataset reads a JSON array of candidates from disk.
func LoadDataset(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var candidates []Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return candidates, nil
}

// Matcher filters and judges candidates for one profile at a time.
type Matcher struct {
	judge      Judge
	rng        *rand.Rand
	logger     *slog.Logger
	candidates []Candidate
	// unlocated admits candidates whose dataset entry is missing the
	// country or city being matched on. The harvested data is
	// inconsistent here, so the choice is explicit configuration.
	unlocated bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// WithUnlocated admits candidates missing the matched locality fields.
func WithUnlocated() Option {
	return func(m *Matcher) { m.unlocated = true }
}

// WithRand sets the shuffle source. Used by tests.
func WithRand(rng *rand.Rand) Option {
	return func(m *Matcher) { m.rng = rng }
}

// New creates a Matcher over a candidate dataset.
func New(judge Judge, candidates []Candidate, opts ...Option) *Matcher {
	m := &Matcher{
		judge:      judge,
		candidates: candidates,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recommend filters the dataset by optional country/city equality,
// shuffles the survivors to avoid positional bias, and accepts the
// first maxResults distinct candidates the judge approves. The root
// profile's own id never appears in the result. When the root discloses
// no interests the judge is skipped and a city match stands in for it.
func (m *Matcher) Recommend(ctx context.Context, p *account.Profile, maxResults int, matchCountry, matchCity bool) ([]Match, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	filtered := m.filter(p, matchCountry, matchCity)
	m.shuffle(filtered)
	m.logger.DebugContext(ctx, "acquaintance candidates after filter", "count", len(filtered))

	var matches []Match
	seen := make(map[int64]struct{})
	for _, cand := range filtered {
		if cand.ID == int64(p.ID) {
			continue
		}
		if _, dup := seen[cand.ID]; dup {
			continue
		}

		ok, err := m.accept(ctx, p, cand)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		seen[cand.ID] = struct{}{}
		matches = append(matches, Match{
			Name:      strings.TrimSpace(cand.FirstName + " " + cand.LastName),
			Interests: cand.Interests,
			Link:      account.ID(cand.ID).URL(),
		})
		if len(matches) == maxResults {
			break
		}
	}
	return matches, nil
}

func (m *Matcher) accept(ctx context.Context, p *account.Profile, cand Candidate) (bool, error) {
	if p.Interests != "" {
		return m.judge.Compatible(ctx, p.Interests, cand.Interests)
	}
	// No interests to judge on: fall back to sharing a city.
	return p.City != "" && cand.City != nil && strings.EqualFold(p.City, cand.City.Title), nil
}

func (m *Matcher) filter(p *account.Profile, matchCountry, matchCity bool) []Candidate {
	var filtered []Candidate
	for _, cand := range m.candidates {
		if matchCountry && !m.localityMatches(p.Country, cand.Country) {
			continue
		}
		if matchCity && !m.localityMatches(p.City, cand.City) {
			continue
		}
		filtered = append(filtered, cand)
	}
	return filtered
}

func (m *Matcher) localityMatches(rootValue string, candValue *Locality) bool {
	if candValue == nil {
		return m.unlocated
	}
	return rootValue != "" && strings.EqualFold(rootValue, candValue.Title)
}

func (m *Matcher) shuffle(candidates []Candidate) {
	swap := func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] }
	if m.rng != nil {
		m.rng.Shuffle(len(candidates), swap)
		return
	}
	rand.Shuffle(len(candidates), swap)
}
