package vk

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/dmitriikuleshov/vkscope/account"
)

// Recognized link shapes, in priority order. The first pattern whose
// capture is non-empty wins. A leading minus in the captured digits
// marks a community.
var linkPatterns = []*regexp.Regexp{
	// Bare signed integer: "123", "-45".
	regexp.MustCompile(`^(-?\d+)`),
	// Id embedded after a known path marker: wall-45_67, id123,
	// photo88_1, im?sel=5, feed?w=wall-1_2.
	regexp.MustCompile(`(?:feed\?\w?=)?(?:wall|im\?sel=|id=*|photo|videos|albums|audios|topic)(-?\d+)`),
	// Community short forms: club89, public34.
	regexp.MustCompile(`(?:club|public)(\d+)`),
	// Trailing vanity segment after the domain: vk.com/durov.
	regexp.MustCompile(`\.com/([a-zA-Z\d._]+)`),
}

// communityPatternIndex marks the club/public pattern, whose captured
// digits carry no sign of their own.
const communityPatternIndex = 2

// Resolve normalizes a free-form profile link into a canonical account id.
// Vanity names go through the directory lookup; names resolving to a
// community yield a negative id. Anything unrecognized fails with
// account.ErrInvalidReference.
func (c *Client) Resolve(ctx context.Context, link string) (account.ID, error) {
	for i, pattern := range linkPatterns {
		m := pattern.FindStringSubmatch(link)
		if m == nil || m[1] == "" {
			continue
		}

		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			if i == communityPatternIndex {
				return account.ID(-n), nil
			}
			return account.ID(n), nil
		}

		return c.resolveScreenName(ctx, m[1])
	}
	return 0, fmt.Errorf("%w: %q", account.ErrInvalidReference, link)
}

// resolveScreenName resolves a vanity name through utils.resolveScreenName.
// Only users and communities are acceptable targets; applications and
// lookup misses are invalid references.
func (c *Client) resolveScreenName(ctx context.Context, name string) (account.ID, error) {
	var resolved struct {
		Type     string `json:"type"`
		ObjectID int64  `json:"object_id"`
	}
	params := url.Values{}
	params.Set("screen_name", name)
	if err := c.call(ctx, "utils.resolveScreenName", params, &resolved); err != nil {
		return 0, fmt.Errorf("%w: %q: %w", account.ErrInvalidReference, name, err)
	}

	switch resolved.Type {
	case "user":
		return account.ID(resolved.ObjectID), nil
	case "group", "page", "event":
		return account.ID(-resolved.ObjectID), nil
	default:
		// Unknown names decode as an empty object, applications as
		// type "application"; neither references an account.
		return 0, fmt.Errorf("%w: %q resolves to %q", account.ErrInvalidReference, name, resolved.Type)
	}
}
