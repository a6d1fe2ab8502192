// Package account defines the common types for VK account analysis.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Common errors returned by the engine packages.
var (
	// ErrInvalidReference means a link matched none of the recognized URL
	// shapes, or a vanity name could not be resolved to a user or community.
	ErrInvalidReference = errors.New("link does not reference a known account")
	// ErrProfileNotFound means the target account does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrRestrictedAccess means the account's privacy settings block
	// programmatic retrieval of friends, subscriptions or wall posts.
	ErrRestrictedAccess = errors.New("access restricted by privacy settings")
	// ErrRateLimited means the API rejected the call for quota reasons.
	// Aggregation treats it the same as ErrRestrictedAccess at the
	// per-scope-member level.
	ErrRateLimited = errors.New("rate limited")
	// ErrExternalService means the denylist fetch or a similarity
	// judgment call failed. No partial screening result is fabricated.
	ErrExternalService = errors.New("external service failed")
)

// ID identifies a VK account. Positive values denote individual users,
// negative values denote communities, matching the VK API sign convention.
type ID int64

// User reports whether the id denotes an individual user.
func (id ID) User() bool { return id >= 0 }

// Community reports whether the id denotes a community.
func (id ID) Community() bool { return id < 0 }

// URL returns the canonical profile link for the id.
func (id ID) URL() string {
	if id < 0 {
		return fmt.Sprintf("https://vk.com/club%d", -id)
	}
	return fmt.Sprintf("https://vk.com/id%d", id)
}

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// List holds a collection that the VK API may refuse to disclose.
// The zero value is Unknown: "hidden by privacy settings" is a first-class
// state distinct from "retrieved and empty".
type List[T any] struct {
	items []T
	known bool
}

// Known wraps a retrieved collection. items may be empty or carry
// duplicates; the source does not guarantee uniqueness, so consumers
// dedupe at their end.
func Known[T any](items []T) List[T] { return List[T]{items: items, known: true} }

// Unknown marks a collection the source refused to disclose.
func Unknown[T any]() List[T] { return List[T]{} }

// IsKnown reports whether the collection was actually retrieved.
func (l List[T]) IsKnown() bool { return l.known }

// Items returns the retrieved collection, or nil when unknown.
func (l List[T]) Items() []T { return l.items }

// Len returns the number of retrieved items (0 when unknown).
func (l List[T]) Len() int { return len(l.items) }

// MarshalJSON renders an unknown list as null and a known one as an array,
// so serialized profiles keep "hidden" distinct from "empty".
func (l List[T]) MarshalJSON() ([]byte, error) {
	if !l.known {
		return []byte("null"), nil
	}
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

// UnmarshalJSON restores null as an unknown list.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = List[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &l.items); err != nil {
		return err
	}
	l.known = true
	return nil
}

// University describes the higher education entry of a profile.
// Any field may be empty when the account does not disclose it.
type University struct {
	Name       string
	Faculty    string
	Form       string
	Graduation int
}

// Subscriptions carries the accounts a profile follows, split the way the
// VK API reports them. Users and Groups become unknown together with
// Friends and PostDates when the privacy guard trips.
type Subscriptions struct {
	Users  List[ID]
	Groups List[ID]
}

// Profile aggregates the per-account data the engine works with. It is
// built fresh per request and discarded after rendering; nothing caches
// or persists it.
//
// Free-text fields (Interests, Books, ...) are blobs, not structured
// lists: that is how the VK API returns them.
type Profile struct {
	ID        ID
	FirstName string
	LastName  string

	Birthday string
	Country  string
	City     string

	Interests  string
	Books      string
	Games      string
	Movies     string
	Activities string
	Music      string

	University *University
	Relatives  []ID

	FriendsCount   int
	FollowersCount int

	// Friends preserves the API's relevance ranking ("hints" order).
	Friends       List[ID]
	Subscriptions Subscriptions
	// PostDates holds the account's own post timestamps in epoch seconds.
	PostDates List[int64]

	Icon string
}

// Name returns the display name.
func (p *Profile) Name() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Summary is the short form of a profile: enough to list or draw an
// account without the full field set.
type Summary struct {
	ID        ID
	FirstName string
	LastName  string
	Icon      string
}

// Name returns the display name.
func (s Summary) Name() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}

// Group is the short form of a community.
type Group struct {
	ID   ID
	Name string
	Link string
	Icon string
}
