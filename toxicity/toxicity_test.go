package toxicity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/activity"
)

func newTestScreener(t *testing.T, corpus string) *Screener {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, corpus)
	}))
	t.Cleanup(srv.Close)
	return New(
		WithDenylistURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestFlag(t *testing.T) {
	s := newTestScreener(t, "badword\nдурак\n")

	records := []activity.TextRecord{
		{Text: "a perfectly fine text", Link: "https://vk.com/wall1_1"},
		{Text: "contains badword here", Link: "https://vk.com/wall1_2"},
		{Text: "ну ты и ДУРАК!", Link: "https://vk.com/wall1_3"},
		// Two hits in one text still yield one flag.
		{Text: "badword дурак badword", Link: "https://vk.com/wall1_4"},
	}

	got, err := s.Flag(context.Background(), records)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	want := []string{
		"https://vk.com/wall1_2",
		"https://vk.com/wall1_3",
		"https://vk.com/wall1_4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flag mismatch (-want +got):\n%s", diff)
	}
}

// Denylisted words must match as whole tokens; embedding one inside a
// longer word is not a hit.
func TestFlagWholeTokensOnly(t *testing.T) {
	s := newTestScreener(t, "bad\n")

	got, err := s.Flag(context.Background(), []activity.TextRecord{
		{Text: "badger badminton embedded", Link: "https://vk.com/wall1_1"},
	})
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Flag = %v, want none", got)
	}
}

func TestFlagCleanCorpus(t *testing.T) {
	s := newTestScreener(t, "badword\n")

	got, err := s.Flag(context.Background(), []activity.TextRecord{
		{Text: "nothing to see", Link: "https://vk.com/wall1_1"},
	})
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if got != nil {
		t.Errorf("Flag = %v, want nil", got)
	}
}

func TestFlagDenylistUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	s := New(
		WithDenylistURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := s.Flag(context.Background(), []activity.TextRecord{{Text: "x", Link: "l"}})
	if !errors.Is(err, account.ErrExternalService) {
		t.Errorf("Flag error = %v, want ErrExternalService", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", " hello  world "},
		{"ДУРАК123тест", " дурак   тест "},
		{"", "  "},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
