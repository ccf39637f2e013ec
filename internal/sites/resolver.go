// Package sites resolves which wiki project a URL belongs to and what
// routing capabilities it supports.
package sites

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"wikiroute/internal/config"
	"wikiroute/internal/domain"
	"wikiroute/internal/repo"
)

// Resolver looks up a site descriptor for a URL. Resolution order: explicit
// registry row, then the built-in wikipedia host parser with configuration
// overrides applied. A nil site with nil error means no project matched.
type Resolver struct {
	Repo   repo.Repo
	Config *config.Config
}

func (r Resolver) ResolveSite(ctx context.Context, u *url.URL) (*domain.Site, error) {
	host := normalizeHost(u)
	if host == "" {
		return nil, nil
	}
	if r.Repo.DB != nil {
		s, err := r.Repo.GetSite(ctx, host)
		if err == nil {
			return &s, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	s, ok := FromHost(host)
	if !ok {
		return nil, nil
	}
	if r.Config != nil {
		if ov, found := r.Config.Sites.Overrides[s.Host]; found {
			applyOverride(&s, ov)
		}
	}
	return &s, nil
}

var languageCode = regexp.MustCompile(`^[a-z]{2,12}(-[a-z0-9]+)*$`)

// FromHost derives a site with default capabilities from a
// <lang>[.m|.zero].wikipedia.org host. The returned host is the canonical
// desktop host regardless of mobile subdomains.
func FromHost(host string) (domain.Site, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	labels := strings.Split(host, ".")
	n := len(labels)
	if n < 3 || n > 4 || labels[n-2] != "wikipedia" || labels[n-1] != "org" {
		return domain.Site{}, false
	}
	if n == 4 && labels[1] != "m" && labels[1] != "zero" {
		return domain.Site{}, false
	}
	lang := labels[0]
	if lang == "m" || lang == "zero" || !languageCode.MatchString(lang) {
		return domain.Site{}, false
	}
	return domain.Site{
		Host:                lang + ".wikipedia.org",
		Language:            lang,
		SupportsUserTalk:    true,
		SupportsNativeDiff:  true,
		MainNamespaceNative: true,
		RoutesMetaPaths:     true,
	}, true
}

func applyOverride(s *domain.Site, ov config.SiteOverride) {
	if ov.Language != "" {
		s.Language = ov.Language
	}
	if ov.SupportsUserTalk != nil {
		s.SupportsUserTalk = *ov.SupportsUserTalk
	}
	if ov.SupportsNativeDiff != nil {
		s.SupportsNativeDiff = *ov.SupportsNativeDiff
	}
	if ov.MainNamespaceNative != nil {
		s.MainNamespaceNative = *ov.MainNamespaceNative
	}
	if ov.RoutesMetaPaths != nil {
		s.RoutesMetaPaths = *ov.RoutesMetaPaths
	}
}

func normalizeHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
