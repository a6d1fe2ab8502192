// Package vkscope aggregates public VK data for a profile link and
// derives secondary signals: an activity timeline, a toxic-language
// scan, a mutual-friend graph and acquaintance recommendations.
//
// Basic usage:
//
//	engine, err := vkscope.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile, err := engine.Profile(ctx, "https://vk.com/durov")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeline, _ := engine.Timeline(ctx, profile)
//
// The VK access token comes from the VK_TOKEN environment variable or
// vkscope.WithToken. Recommendations additionally need a GigaChat key
// (GIGACHAT_TOKEN) and a harvested candidate dataset.
package vkscope

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/acquaint"
	"github.com/dmitriikuleshov/vkscope/activity"
	"github.com/dmitriikuleshov/vkscope/gigachat"
	"github.com/dmitriikuleshov/vkscope/graph"
	"github.com/dmitriikuleshov/vkscope/httpcache"
	"github.com/dmitriikuleshov/vkscope/toxicity"
	"github.com/dmitriikuleshov/vkscope/vk"
)

type (
	// Profile re-exports account.Profile for convenience.
	Profile = account.Profile
	// ID re-exports account.ID for convenience.
	ID = account.ID
)

var (
	_ graph.Source   = (*vk.Client)(nil)
	_ acquaint.Judge = (*gigachat.Client)(nil)
)

// Re-export common errors.
var (
	ErrInvalidReference = account.ErrInvalidReference
	ErrProfileNotFound  = account.ErrProfileNotFound
	ErrRestrictedAccess = account.ErrRestrictedAccess
	ErrExternalService  = account.ErrExternalService
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	cache          httpcache.Cacher
	token          string
	gigachatToken  string
	datasetPath    string
	browserCookies bool
	unlocated      bool
}

// WithToken sets the VK API access token explicitly.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithGigaChatToken sets the GigaChat authorization key explicitly.
func WithGigaChatToken(token string) Option {
	return func(c *config) { c.gigachatToken = token }
}

// WithBrowserCookies enables reading vk.com cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache used for the denylist fetch.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithDataset points at the harvested candidate dataset used for
// acquaintance recommendations.
func WithDataset(path string) Option {
	return func(c *config) { c.datasetPath = path }
}

// WithUnlocatedCandidates admits dataset entries missing country/city
// from locality filtering instead of excluding them.
func WithUnlocatedCandidates() Option {
	return func(c *config) { c.unlocated = true }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Engine wires the analysis components around one VK client. All
// derived data is computed fresh per call; the Engine itself carries no
// request state and is safe for concurrent use.
type Engine struct {
	VK        *vk.Client
	Activity  *activity.Aggregator
	Graph     *graph.Builder
	Screening *toxicity.Screener

	chat    *gigachat.Client
	matcher *acquaint.Matcher
	logger  *slog.Logger
}

// New creates an Engine. The GigaChat client and acquaintance matcher
// are optional: they come up only when their credentials and dataset
// are configured, and the dependent calls fail cleanly otherwise.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	vkOpts := []vk.Option{vk.WithLogger(cfg.logger)}
	if cfg.token != "" {
		vkOpts = append(vkOpts, vk.WithToken(cfg.token))
	}
	if cfg.browserCookies {
		vkOpts = append(vkOpts, vk.WithBrowserCookies())
	}
	client, err := vk.New(ctx, vkOpts...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		VK:       client,
		Activity: activity.New(client, activity.WithLogger(cfg.logger)),
		Graph:    graph.New(client, graph.WithLogger(cfg.logger)),
		Screening: toxicity.New(
			toxicity.WithLogger(cfg.logger),
			toxicity.WithHTTPCache(cfg.cache),
		),
		logger: cfg.logger,
	}

	chatOpts := []gigachat.Option{gigachat.WithLogger(cfg.logger)}
	if cfg.gigachatToken != "" {
		chatOpts = append(chatOpts, gigachat.WithToken(cfg.gigachatToken))
	}
	chat, err := gigachat.New(chatOpts...)
	if err != nil {
		cfg.logger.Debug("gigachat unavailable", "error", err)
	} else {
		e.chat = chat
	}

	if cfg.datasetPath != "" && e.chat != nil {
		candidates, err := acquaint.LoadDataset(cfg.datasetPath)
		if err != nil {
			return nil, err
		}
		matcherOpts := []acquaint.Option{acquaint.WithLogger(cfg.logger)}
		if cfg.unlocated {
			matcherOpts = append(matcherOpts, acquaint.WithUnlocated())
		}
		e.matcher = acquaint.New(e.chat, candidates, matcherOpts...)
	}

	return e, nil
}

// Profile resolves a free-form link and fetches the full profile.
func (e *Engine) Profile(ctx context.Context, link string) (*account.Profile, error) {
	id, err := e.VK.Resolve(ctx, link)
	if err != nil {
		return nil, err
	}
	return e.VK.Fetch(ctx, id)
}

// Timeline returns the profile's recent posting and commenting instants
// with the default scope limits and recency window.
func (e *Engine) Timeline(ctx context.Context, p *account.Profile) ([]string, error) {
	return e.Activity.Timeline(ctx, p, activity.DefaultLimits, activity.DefaultWindow)
}

// Toxicity collects the profile's recent texts and returns links to the
// ones containing denylisted vocabulary.
func (e *Engine) Toxicity(ctx context.Context, p *account.Profile) ([]string, error) {
	records, err := e.Activity.Texts(ctx, p, activity.DefaultLimits, activity.DefaultWindow)
	if err != nil {
		return nil, err
	}
	return e.Screening.Flag(ctx, records)
}

// MutualFriends returns the accounts present in every linked account's
// bounded friend list.
func (e *Engine) MutualFriends(ctx context.Context, links ...string) ([]account.Summary, error) {
	return e.Graph.MutualFriends(ctx, links...)
}

// FriendsGraph resolves the link and assembles the render-ready
// mutual-friend graph around it.
func (e *Engine) FriendsGraph(ctx context.Context, link string) (*graph.Graph, error) {
	id, err := e.VK.Resolve(ctx, link)
	if err != nil {
		return nil, err
	}
	root, err := e.VK.FetchShort(ctx, id)
	if err != nil {
		return nil, err
	}
	connections, err := e.Graph.CommonConnections(ctx, link)
	if err != nil {
		return nil, err
	}
	return graph.Assemble(root, connections), nil
}

// Summary asks the language model for a short description of the profile.
func (e *Engine) Summary(ctx context.Context, p *account.Profile) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("%w: gigachat not configured", account.ErrExternalService)
	}
	return e.chat.Summarize(ctx, p)
}

// Recommend suggests up to maxResults acquaintances for the profile.
func (e *Engine) Recommend(ctx context.Context, p *account.Profile, maxResults int, matchCountry, matchCity bool) ([]acquaint.Match, error) {
	if e.matcher == nil {
		return nil, fmt.Errorf("%w: recommendation dataset or gigachat not configured", account.ErrExternalService)
	}
	return e.matcher.Recommend(ctx, p, maxResults, matchCountry, matchCity)
}
