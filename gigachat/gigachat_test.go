package gigachat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitriikuleshov/vkscope/account"
)

// newTestClient points a client at a fake completion endpoint that
// answers with reply and records the last prompt it saw.
func newTestClient(t *testing.T, reply string, lastPrompt *string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if lastPrompt != nil && len(req.Messages) > 0 {
			*lastPrompt = req.Messages[0].Content
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
	t.Cleanup(srv.Close)

	client, err := New(
		WithToken("test-key"),
		WithAPIURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresToken(t *testing.T) {
	t.Setenv("GIGACHAT_TOKEN", "")
	if _, err := New(); err == nil {
		t.Fatal("New without a key should fail")
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"ДА", true},
		{"ДА\n", true},
		{"НЕТ", false},
		{"Да, конечно", false}, // anything but a bare ДА is a no
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			var prompt string
			client := newTestClient(t, tt.reply, &prompt)

			got, err := client.Compatible(context.Background(), "шахматы", "футбол")
			if err != nil {
				t.Fatalf("Compatible: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compatible = %v, want %v", got, tt.want)
			}
			if !strings.Contains(prompt, "шахматы") || !strings.Contains(prompt, "футбол") {
				t.Errorf("prompt missing interests: %q", prompt)
			}
		})
	}
}

func TestSummarizeUsesOnlyPresentFields(t *testing.T) {
	var prompt string
	client := newTestClient(t, "Описание.", &prompt)

	p := &account.Profile{
		ID:        42,
		FirstName: "Ivan",
		LastName:  "Petrov",
		City:      "Москва",
		Interests: "шахматы",
	}
	got, err := client.Summarize(context.Background(), p)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "Описание." {
		t.Errorf("Summarize = %q", got)
	}

	for _, want := range []string{"Ivan Petrov", "Москва", "шахматы"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %q", want, prompt)
		}
	}
	// Absent fields must not surface as stanzas.
	for _, absent := range []string{"родился", "Страна", "книги", "друзей"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("prompt mentions absent field %q: %q", absent, prompt)
		}
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client, err := New(
		WithToken("bad-key"),
		WithAPIURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Compatible(context.Background(), "a", "b")
	if !errors.Is(err, account.ErrExternalService) {
		t.Errorf("error = %v, want ErrExternalService", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(
		WithToken("test-key"),
		WithAPIURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Compatible(context.Background(), "a", "b")
	if !errors.Is(err, account.ErrExternalService) {
		t.Errorf("error = %v, want ErrExternalService", err)
	}
}
