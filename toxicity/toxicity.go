// Package toxicity screens collected texts against an external denylist
// of obscene words.
package toxicity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/activity"
	"github.com/dmitriikuleshov/vkscope/httpcache"
)

// DefaultDenylistURL is the flat newline-delimited Russian obscene-word
// corpus the analyser screens against.
const DefaultDenylistURL = "https://raw.githubusercontent.com/odaykhovskaya/obscene_words_ru/master/obscene_corpus.txt"

// Screener flags texts containing denylisted words.
type Screener struct {
	httpClient  *http.Client
	cache       httpcache.Cacher
	logger      *slog.Logger
	denylistURL string
}

// Option configures a Screener.
type Option func(*Screener)

// WithHTTPCache caches the denylist between calls; the corpus changes
// rarely and is fetched over plain HTTP otherwise.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(s *Screener) { s.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Screener) { s.logger = logger }
}

// WithDenylistURL overrides the denylist source. Used by tests.
func WithDenylistURL(url string) Option {
	return func(s *Screener) { s.denylistURL = url }
}

// New creates a Screener.
func New(opts ...Option) *Screener {
	s := &Screener{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      slog.Default(),
		denylistURL: DefaultDenylistURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flag returns the links of texts containing at least one denylisted
// word as a whole token: one flag per offending text, not one per word.
//
// The scan is two-phase. A single normalized corpus of all texts is
// checked against the full dictionary first; only the words found there
// are re-checked against individual texts. The dictionary is large and
// the per-text subset rarely is.
func (s *Screener) Flag(ctx context.Context, records []activity.TextRecord) ([]string, error) {
	words, err := s.denylist(ctx)
	if err != nil {
		return nil, err
	}

	var corpus strings.Builder
	for _, rec := range records {
		corpus.WriteString(rec.Text)
		corpus.WriteByte(' ')
	}
	all := normalize(corpus.String())

	var found []string
	for _, word := range words {
		if strings.Contains(all, " "+word+" ") {
			found = append(found, word)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	s.logger.DebugContext(ctx, "denylist words present in corpus", "count", len(found))

	var links []string
	for _, rec := range records {
		text := normalize(rec.Text)
		for _, word := range found {
			if strings.Contains(text, " "+word+" ") {
				links = append(links, rec.Link)
				break
			}
		}
	}
	return links, nil
}

// denylist fetches and splits the word corpus.
func (s *Screener) denylist(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.denylistURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: denylist: %w", account.ErrExternalService, err)
	}

	body, err := httpcache.FetchURL(ctx, s.cache, s.httpClient, req, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: denylist: %w", account.ErrExternalService, err)
	}

	var words []string
	for _, line := range strings.Split(strings.ToLower(string(body)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words, nil
}

// normalize lowercases a text, replaces every non-letter rune with a
// space and pads the boundaries, so whole-token containment reduces to
// a substring check.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	for _, r := range text {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return b.String()
}
