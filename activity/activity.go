// Package activity derives an account's posting and commenting activity
// by scanning the walls of its friends and subscriptions.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dmitriikuleshov/vkscope/account"
	"github.com/dmitriikuleshov/vkscope/vk"
)

// Source is the slice of the VK client the aggregator needs.
type Source interface {
	Wall(ctx context.Context, owner account.ID, count int) ([]vk.Post, error)
	Comments(ctx context.Context, owner account.ID, postID int64, count int) ([]vk.Comment, error)
}

var _ Source = (*vk.Client)(nil)

// Limits bounds the fan-out per scope: friends, subscribed users,
// subscribed groups.
type Limits struct {
	Friends int
	Users   int
	Groups  int
}

// DefaultLimits matches the bounds the analyser uses for interactive requests.
var DefaultLimits = Limits{Friends: 5, Users: 5, Groups: 5}

// DefaultWindow is the recency window for considered posts: one month.
const DefaultWindow = 2629743 * time.Second

// pageSize is the per-call cap on posts and comments.
const pageSize = 100

// DisplayFormat is the timezone-naive layout activity timestamps are
// rendered in.
const DisplayFormat = "2006-01-02 15:04:05"

// TextRecord is one collected text with a permalink to the post it was
// found under.
type TextRecord struct {
	Text string
	Link string
}

// Aggregator collects activity for one profile at a time. It holds no
// per-request state.
type Aggregator struct {
	src    Source
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// New creates an Aggregator over the given source.
func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Timeline returns the instants the profile owner posted or commented
// within the window, deduplicated, sorted ascending and rendered in
// DisplayFormat. The owner's own post dates are merged in when known.
func (a *Aggregator) Timeline(ctx context.Context, p *account.Profile, limits Limits, window time.Duration) ([]string, error) {
	seen := make(map[int64]struct{})
	a.collect(ctx, p, limits, window, func(date int64, _, _ string) {
		seen[date] = struct{}{}
	})

	if p.PostDates.IsKnown() {
		for _, date := range p.PostDates.Items() {
			seen[date] = struct{}{}
		}
	}

	dates := make([]int64, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	out := make([]string, 0, len(dates))
	for _, date := range dates {
		out = append(out, time.Unix(date, 0).Format(DisplayFormat))
	}
	return out, nil
}

// Texts returns the literal texts the profile owner published within the
// window: comments found under friends' and subscriptions' posts, then
// the owner's own wall posts fetched fresh. Unlike per-member scan
// failures, a failure to read the owner's own wall is an error.
func (a *Aggregator) Texts(ctx context.Context, p *account.Profile, limits Limits, window time.Duration) ([]TextRecord, error) {
	var records []TextRecord
	seen := make(map[TextRecord]struct{})
	a.collect(ctx, p, limits, window, func(_ int64, text, link string) {
		rec := TextRecord{Text: text, Link: link}
		if _, dup := seen[rec]; dup {
			return
		}
		seen[rec] = struct{}{}
		records = append(records, rec)
	})

	posts, err := a.src.Wall(ctx, p.ID, pageSize)
	if err != nil {
		return nil, fmt.Errorf("own wall for %d: %w", p.ID, err)
	}
	for _, post := range posts {
		rec := TextRecord{Text: post.Text, Link: post.Permalink()}
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}
		records = append(records, rec)
	}
	return records, nil
}

// collect runs the shared scan over all three scopes and emits one call
// per comment the profile owner left on a scanned wall. Both output
// modes run through here; only the emit closure differs.
func (a *Aggregator) collect(ctx context.Context, p *account.Profile, limits Limits, window time.Duration, emit func(date int64, text, link string)) {
	cutoff := time.Now().Add(-window).Unix()

	for _, member := range a.members(p, limits) {
		a.scanWall(ctx, member, p.ID, cutoff, emit)
	}
}

// members assembles the bounded fan-out set: friends plus the owner
// itself (to capture self-comments), subscribed users, and subscribed
// groups with the community sign applied. Scopes whose source list is
// unavailable are skipped entirely.
func (a *Aggregator) members(p *account.Profile, limits Limits) []account.ID {
	var members []account.ID

	if p.Friends.IsKnown() {
		members = append(members, head(p.Friends.Items(), limits.Friends)...)
		members = append(members, p.ID)
	}
	if p.Subscriptions.Users.IsKnown() {
		members = append(members, head(p.Subscriptions.Users.Items(), limits.Users)...)
	}
	if p.Subscriptions.Groups.IsKnown() {
		for _, gid := range head(p.Subscriptions.Groups.Items(), limits.Groups) {
			if gid > 0 {
				gid = -gid
			}
			members = append(members, gid)
		}
	}
	return members
}

// scanWall walks one member's recent posts newest-first and emits the
// owner's comments under them. Posts are assumed reverse-chronological:
// the first post outside the window ends the scan. Any retrieval error
// skips the member; partial results are the point.
func (a *Aggregator) scanWall(ctx context.Context, member, owner account.ID, cutoff int64, emit func(date int64, text, link string)) {
	posts, err := a.src.Wall(ctx, member, pageSize)
	if err != nil {
		a.logger.DebugContext(ctx, "skipping wall", "member", member, "error", err)
		return
	}

	for _, post := range posts {
		if post.Date < cutoff {
			break
		}
		if post.Comments == 0 {
			continue
		}

		comments, err := a.src.Comments(ctx, member, post.ID, pageSize)
		if err != nil {
			a.logger.DebugContext(ctx, "skipping comments", "member", member, "post", post.ID, "error", err)
			return
		}
		for _, comment := range comments {
			if comment.From != owner {
				continue
			}
			emit(comment.Date, comment.Text, post.Permalink())
		}
	}
}

func head(ids []account.ID, n int) []account.ID {
	if n < len(ids) {
		return ids[:n]
	}
	return ids
}
