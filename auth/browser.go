package auth

import (
	"context"
	"log/slog"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
)

// platformDomains maps platform names to their cookie domains.
var platformDomains = map[string]string{
	"vkontakte": "vk.com",
}

// platformEssentialCookies maps platform names to the cookie names worth
// carrying over from a browser session.
var platformEssentialCookies = map[string][]string{
	"vkontakte": {"remixsid"},
}

// BrowserSource reads cookies from browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger}
}

// Cookies returns cookies for the given platform from browser stores.
func (s *BrowserSource) Cookies(ctx context.Context, platform string) (map[string]string, error) {
	domain, ok := platformDomains[platform]
	if !ok {
		return nil, nil //nolint:nilnil // no cookies for unknown platform is not an error
	}

	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil {
		s.logger.Debug("failed to read browser cookies", "platform", platform, "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}

	essential := platformEssentialCookies[platform]
	cookies := make(map[string]string)
	for _, k := range kookies {
		for _, name := range essential {
			if k.Name == name && k.Value != "" {
				cookies[name] = k.Value
			}
		}
	}
	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // nothing essential found
	}

	s.logger.Debug("found browser cookies", "platform", platform, "count", len(cookies))
	return cookies, nil
}
