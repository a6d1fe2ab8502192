// Package graph builds the mutual-friend graph of an account from
// overlapping bounded friend-id sets.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dmitriikuleshov/vkscope/account"
)

// ErrIntersectionUnavailable means one operand of a mutual-friends
// computation could not be retrieved. An unknown intersection is not an
// empty one; the two must never be conflated.
var ErrIntersectionUnavailable = errors.New("friend list unavailable for an intersection operand")

// friendLimit bounds each friend-list fetch for cost control.
const friendLimit = 20

// Source is the slice of the VK client the builder needs.
type Source interface {
	Resolve(ctx context.Context, link string) (account.ID, error)
	Friends(ctx context.Context, id account.ID, limit int) ([]account.ID, error)
	Users(ctx context.Context, ids []account.ID) ([]account.Summary, error)
}

// Connection pairs one friend of the root account with the friends that
// friend shares with the root. MutualKnown false means the intersection
// could not be computed for this friend; that renders distinctly from
// "computed and empty".
type Connection struct {
	Friend      account.Summary
	Mutual      []account.Summary
	MutualKnown bool
}

// Builder computes friend intersections and render-ready graphs.
type Builder struct {
	src    Source
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a Builder over the given source.
func New(src Source, opts ...Option) *Builder {
	b := &Builder{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MutualFriends resolves each link and returns the accounts present in
// every one's bounded friend list. The result is a true set
// intersection: argument order never changes the returned set. If any
// operand's friend list cannot be retrieved the whole computation is
// unavailable, surfaced as ErrIntersectionUnavailable.
func (b *Builder) MutualFriends(ctx context.Context, links ...string) ([]account.Summary, error) {
	ids := make([]account.ID, 0, len(links))
	for _, link := range links {
		id, err := b.src.Resolve(ctx, link)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return b.mutualOf(ctx, ids...)
}

func (b *Builder) mutualOf(ctx context.Context, ids ...account.ID) ([]account.Summary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var shared map[account.ID]struct{}
	for _, id := range ids {
		friends, err := b.src.Friends(ctx, id, friendLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: id %d: %w", ErrIntersectionUnavailable, id, err)
		}

		set := make(map[account.ID]struct{}, len(friends))
		for _, f := range friends {
			set[f] = struct{}{}
		}
		if shared == nil {
			shared = set
			continue
		}
		for f := range shared {
			if _, ok := set[f]; !ok {
				delete(shared, f)
			}
		}
	}

	mutual := make([]account.ID, 0, len(shared))
	for f := range shared {
		mutual = append(mutual, f)
	}
	sort.Slice(mutual, func(i, j int) bool { return mutual[i] < mutual[j] })

	return b.src.Users(ctx, mutual)
}

// CommonConnections resolves the root link, walks its bounded friend
// list and computes each friend's mutual friends with the root. A
// missing root friend list fails the whole computation with
// ErrIntersectionUnavailable; a failed per-friend intersection only
// marks that entry unavailable.
func (b *Builder) CommonConnections(ctx context.Context, link string) ([]Connection, error) {
	rootID, err := b.src.Resolve(ctx, link)
	if err != nil {
		return nil, err
	}

	friends, err := b.src.Friends(ctx, rootID, friendLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: root %d: %w", ErrIntersectionUnavailable, rootID, err)
	}
	summaries, err := b.src.Users(ctx, friends)
	if err != nil {
		return nil, err
	}

	connections := make([]Connection, 0, len(summaries))
	for _, friend := range summaries {
		mutual, err := b.mutualOf(ctx, rootID, friend.ID)
		if err != nil {
			b.logger.DebugContext(ctx, "intersection unavailable", "root", rootID, "friend", friend.ID, "error", err)
			connections = append(connections, Connection{Friend: friend})
			continue
		}
		connections = append(connections, Connection{Friend: friend, Mutual: mutual, MutualKnown: true})
	}
	return connections, nil
}

// Node is one account in a render-ready graph. The root carries local
// id -1; friends get sequential ids in first-seen order.
type Node struct {
	Label string `json:"label"`
	Image string `json:"image,omitempty"`
	ID    int    `json:"id"`
}

// Edge links two local node ids.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is the deduplicated node/edge form of a connections list.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Assemble builds the render graph in two passes. The first pass
// assigns every distinct friend a local id the first time it is seen
// and emits the node plus its root edge; the second emits the
// friend-to-mutual edges through the id map. Mutual edges cannot be
// emitted in one pass: they may reference friends declared later in
// iteration order. Duplicate undirected edges collapse to one.
func Assemble(root account.Summary, connections []Connection) *Graph {
	const rootNode = -1
	g := &Graph{
		Nodes: []Node{{ID: rootNode, Label: root.Name(), Image: root.Icon}},
	}

	local := make(map[account.ID]int)
	next := 0
	declare := func(s account.Summary) int {
		if id, ok := local[s.ID]; ok {
			return id
		}
		id := next
		next++
		local[s.ID] = id
		g.Nodes = append(g.Nodes, Node{ID: id, Label: s.Name(), Image: s.Icon})
		return id
	}

	seenEdges := make(map[Edge]struct{})
	addEdge := func(from, to int) {
		key := Edge{From: from, To: to}
		if from > to {
			key = Edge{From: to, To: from}
		}
		if _, dup := seenEdges[key]; dup {
			return
		}
		seenEdges[key] = struct{}{}
		g.Edges = append(g.Edges, Edge{From: from, To: to})
	}

	for _, conn := range connections {
		addEdge(rootNode, declare(conn.Friend))
	}
	for _, conn := range connections {
		from := local[conn.Friend.ID]
		for _, m := range conn.Mutual {
			addEdge(from, declare(m))
		}
	}
	return g
}
