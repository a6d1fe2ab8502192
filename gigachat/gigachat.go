// Package gigachat talks to the GigaChat completion API. The engine uses
// it through two narrow text-in/label-out calls: a binary interest
// compatibility verdict and a free-text profile summary.
package gigachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/auth"
)

const (
	defaultAPIURL = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultModel  = "GigaChat"
)

// Client handles GigaChat requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	model      string
	token      string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	apiURL  string
	model   string
	token   string
	timeout time.Duration
}

// WithToken sets the authorization key explicitly.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithAPIURL overrides the API endpoint. Used by tests.
func WithAPIURL(apiURL string) Option {
	return func(c *config) { c.apiURL = strings.TrimRight(apiURL, "/") }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a GigaChat client. The authorization key comes from
// WithToken or the GIGACHAT_TOKEN environment variable.
func New(opts ...Option) (*Client, error) {
	cfg := &config{
		logger:  slog.Default(),
		apiURL:  defaultAPIURL,
		model:   defaultModel,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.token == "" {
		cfg.token = auth.Token(auth.EnvGigaChat)
	}
	if cfg.token == "" {
		return nil, fmt.Errorf("gigachat: no authorization key: set %s or use WithToken", auth.EnvGigaChat)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.timeout},
		logger:     cfg.logger,
		apiURL:     cfg.apiURL,
		model:      cfg.model,
		token:      cfg.token,
	}, nil
}

// Compatible asks the model whether two users with the given interest
// descriptions would enjoy talking to each other.
func (c *Client) Compatible(ctx context.Context, firstInterests, secondInterests string) (bool, error) {
	prompt := fmt.Sprintf("Тебе дано описание пользователя соцсети: '%s'. Ответь ДА,"+
		" если, по твоему мнению, этому пользователю будет интересно общаться с пользователем с "+
		"такими интересами: '%s', иначе ответь НЕТ. Также, если интересы "+
		"второго пользователя слишком размытые, общие и не конкретные, тоже ответь НЕТ.",
		firstInterests, secondInterests)

	answer, err := c.chat(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(answer) == "ДА", nil
}

// Summarize produces a short natural-language description of a profile,
// assembled only from the fields the profile actually discloses.
func (c *Client) Summarize(ctx context.Context, p *account.Profile) (string, error) {
	var b strings.Builder
	b.WriteString("Тебе дано следующее описание пользователя Вконтакте: '")

	if p.FirstName != "" || p.LastName != "" {
		fmt.Fprintf(&b, "Пользователя зовут %s. ", p.Name())
	}
	if p.Birthday != "" {
		fmt.Fprintf(&b, "Он родился %s. ", p.Birthday)
	}
	if p.Country != "" {
		fmt.Fprintf(&b, "Страна пользователя: %s. ", p.Country)
	}
	if p.City != "" {
		fmt.Fprintf(&b, "Город пользователя: %s. ", p.City)
	}
	if p.Interests != "" {
		fmt.Fprintf(&b, "У него есть следующие интересы: \"%s\". ", p.Interests)
	}
	if p.Books != "" {
		fmt.Fprintf(&b, "Ему нравятся книги: %s. ", p.Books)
	}
	if p.Games != "" {
		fmt.Fprintf(&b, "Ему нравятся игры: %s. ", p.Games)
	}
	if p.Movies != "" {
		fmt.Fprintf(&b, "Ему нравятся фильмы: %s. ", p.Movies)
	}
	if p.Activities != "" {
		fmt.Fprintf(&b, "Он увлекается %s. ", p.Activities)
	}
	if p.Music != "" {
		fmt.Fprintf(&b, "Ему нравится музыка: %s. ", p.Music)
	}
	if u := p.University; u != nil {
		if u.Name != "" {
			fmt.Fprintf(&b, "Место получения им высшего образования - %s. ", u.Name)
		}
		if u.Faculty != "" {
			fmt.Fprintf(&b, "Он обучается на факультете %s. ", u.Faculty)
		}
		if u.Form != "" {
			fmt.Fprintf(&b, "Форма его обучения - %s. ", u.Form)
		}
		if u.Graduation != 0 {
			fmt.Fprintf(&b, "Он закончил образование в %d году. ", u.Graduation)
		}
	}
	if p.FriendsCount != 0 {
		fmt.Fprintf(&b, "У него %d друзей. ", p.FriendsCount)
	}
	if p.FollowersCount != 0 {
		fmt.Fprintf(&b, "У него %d подписчиков. ", p.FollowersCount)
	}

	b.WriteString("'. На основании этой информации составь краткое описание пользователя, ИСПОЛЬЗУЯ ТОЛЬКО " +
		"УКАЗАННУЮ В ЭТОМ ЗАПРОСЕ ИНФОРМАЦИЮ, НЕ ИСПОЛЬЗУЯ ДРУГИЕ ФАКТЫ, НЕ ДЕЛАЙ ОЦЕНОЧНЫХ СУБЪЕКТИВНЫХ " +
		"СУЖДЕНИЙ, в описании СОБЛЮДАЙ правила русского языка. В ответ отправь ТОЛЬКО получившийся рассказ.")

	return c.chat(ctx, b.String())
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat performs one completion round trip and returns the first choice.
func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: gigachat: marshal request: %w", account.ErrExternalService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: gigachat: create request: %w", account.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gigachat: %w", account.ErrExternalService, err)
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: gigachat: read response: %w", account.ErrExternalService, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gigachat: unexpected status %s: %s",
			account.ErrExternalService, resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: gigachat: decode response: %w", account.ErrExternalService, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: gigachat: empty choice list", account.ErrExternalService)
	}

	c.logger.DebugContext(ctx, "gigachat completion", "prompt_len", len(prompt))
	return parsed.Choices[0].Message.Content, nil
}
