// Package router maps arbitrary URLs to one member of a closed set of
// destinations. Classification is total: every URL resolves to something,
// degrading to an in-app or external web link when nothing more specific
// applies.
package router

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"wikiroute/internal/config"
	"wikiroute/internal/domain"
	"wikiroute/internal/wikiurl"
)

// SiteResolver identifies the wiki project a URL belongs to. A nil site with
// a nil error means no project could be identified.
type SiteResolver interface {
	ResolveSite(ctx context.Context, u *url.URL) (*domain.Site, error)
}

// Router is the classification engine. It holds only read-only collaborators
// and no mutable state, so a single value is safe for concurrent use.
type Router struct {
	Sites  SiteResolver
	Config *config.Config
}

func New(sites SiteResolver, cfg *config.Config) Router {
	if cfg == nil {
		cfg = config.Default()
	}
	return Router{Sites: sites, Config: cfg}
}

// Destination classifies u. Never fails: resolver errors and parse failures
// all degrade to a web-link destination.
func (r Router) Destination(ctx context.Context, u *url.URL) domain.Destination {
	if u == nil {
		u = &url.URL{}
	}
	var site *domain.Site
	if r.Sites != nil {
		if s, err := r.Sites.ResolveSite(ctx, u); err == nil {
			site = s
		}
	}
	if site == nil {
		if wikiurl.IsHostedAudioLink(u) {
			return domain.Audio(wikiurl.AdjustForAudioPlayback(u).String())
		}
		return r.fallback(u)
	}
	return r.siteDestination(wikiurl.Canonicalize(u), site)
}

// OpensInBrowser reports whether u resolves to a plain web destination.
// Both comparands reuse the destination's own URL, so the comparison
// reduces to a check on the kind tag.
func (r Router) OpensInBrowser(ctx context.Context, u *url.URL) bool {
	d := r.Destination(ctx, u)
	return d == domain.ExternalLink(d.URL) || d == domain.InAppLink(d.URL)
}

// siteDestination runs the ordered resolution pipeline for URLs with an
// identified site: wiki path, then legacy index.php query, then fallback.
func (r Router) siteDestination(u *url.URL, site *domain.Site) domain.Destination {
	if d, ok := r.pathDestination(u, site); ok {
		return d
	}
	if d, ok := r.legacyDestination(u, site); ok {
		return d
	}
	return r.fallback(u)
}

// pathDestination classifies /wiki/ resource paths by namespace.
func (r Router) pathDestination(u *url.URL, site *domain.Site) (domain.Destination, bool) {
	resource, ok := wikiurl.WikiResourcePath(u)
	if !ok {
		return domain.Destination{}, false
	}
	ns, title := wikiurl.NamespaceAndTitle(resource, site.Language)
	switch ns {
	case domain.NamespaceTalk:
		if r.Config.Features.NativeTalkPages && site.SupportsUserTalk {
			return domain.Talk(u.String()), true
		}
	case domain.NamespaceUserTalk:
		if site.SupportsUserTalk {
			return domain.UserTalk(u.String()), true
		}
	case domain.NamespaceSpecial:
		if !site.SupportsNativeDiff {
			return domain.Destination{}, false
		}
		if from, to, ok := matchMobileDiffCompare(title); ok {
			return domain.DiffCompare(u.String(), &from, &to), true
		}
		if to, ok := matchMobileDiffSingle(title); ok {
			return domain.DiffSingle(u.String(), to), true
		}
		if rest, ok := matchHistory(title); ok {
			return domain.ArticleHistory(u.String(), wikiurl.NormalizeTitle(rest)), true
		}
	case domain.NamespaceMain:
		if !site.MainNamespaceNative {
			return domain.Destination{}, false
		}
		if wikiurl.IsMainPageTitle(title, site.Language) {
			return domain.Destination{}, false
		}
		return domain.Article(u.String()), true
	case domain.NamespaceWikipedia:
		if site.RoutesMetaPaths && strings.Contains(strings.ToLower(title), "on this day") {
			return domain.OnThisDay(u.String(), dayIndex(u)), true
		}
	}
	return domain.Destination{}, false
}

// Special-page patterns for legacy mobile diff and history links. The title
// has already been percent-decoded with underscores converted to spaces.
var (
	mobileDiffComparePattern = regexp.MustCompile(`(?i)^mobilediff/(\d+)\.\.\.(\d+)$`)
	mobileDiffSinglePattern  = regexp.MustCompile(`(?i)^mobilediff/(\d+)$`)
	historyPattern           = regexp.MustCompile(`(?i)^history/(.+)$`)
)

func matchMobileDiffCompare(title string) (from, to int64, ok bool) {
	m := mobileDiffComparePattern.FindStringSubmatch(title)
	if m == nil {
		return 0, 0, false
	}
	from, errFrom := strconv.ParseInt(m[1], 10, 64)
	to, errTo := strconv.ParseInt(m[2], 10, 64)
	if errFrom != nil || errTo != nil {
		return 0, 0, false
	}
	return from, to, true
}

func matchMobileDiffSingle(title string) (int64, bool) {
	m := mobileDiffSinglePattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	to, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return to, true
}

func matchHistory(title string) (string, bool) {
	m := historyPattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// legacyRule is one guarded step of index.php resolution.
type legacyRule struct {
	name       string
	needsTitle bool
	match      func(u *url.URL, p map[string]string) (domain.Destination, bool)
}

// legacyRules resolve index.php queries top to bottom; the first match wins.
// Every rule past "search" requires a title parameter. The history-paged and
// history rules produce the same result today; the limit/dir check is kept
// separate for an eventual paged history view.
var legacyRules = []legacyRule{
	{name: "search", match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		term, present := p["search"]
		if !present {
			return domain.Destination{}, false
		}
		return domain.Search(u.String(), term), true
	}},
	{name: "history-paged", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		_, hasLimit := p["limit"]
		_, hasDir := p["dir"]
		if !hasLimit || !hasDir || p["action"] != "history" {
			return domain.Destination{}, false
		}
		return domain.ArticleHistory(u.String(), wikiurl.NormalizeTitle(p["title"])), true
	}},
	{name: "history", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		if p["action"] != "history" {
			return domain.Destination{}, false
		}
		return domain.ArticleHistory(u.String(), wikiurl.NormalizeTitle(p["title"])), true
	}},
	{name: "revision-diff", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		if p["type"] != "revision" {
			return domain.Destination{}, false
		}
		to, okTo := parseRevID(p["diff"])
		from, okFrom := parseRevID(p["oldid"])
		if !okTo || !okFrom {
			return domain.Destination{}, false
		}
		return domain.DiffCompare(u.String(), &from, &to), true
	}},
	{name: "diff-prev", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		if p["diff"] != "prev" {
			return domain.Destination{}, false
		}
		to, ok := parseRevID(p["oldid"])
		if !ok {
			return domain.Destination{}, false
		}
		return domain.DiffCompare(u.String(), nil, &to), true
	}},
	{name: "diff-next", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		if p["diff"] != "next" {
			return domain.Destination{}, false
		}
		from, ok := parseRevID(p["oldid"])
		if !ok {
			return domain.Destination{}, false
		}
		return domain.DiffCompare(u.String(), &from, nil), true
	}},
	{name: "old-revision", needsTitle: true, match: func(u *url.URL, p map[string]string) (domain.Destination, bool) {
		to, ok := parseRevID(p["oldid"])
		if !ok {
			return domain.Destination{}, false
		}
		return domain.DiffSingle(u.String(), to), true
	}},
}

// legacyDestination classifies /w/index.php query URLs.
func (r Router) legacyDestination(u *url.URL, site *domain.Site) (domain.Destination, bool) {
	if !site.RoutesMetaPaths {
		return domain.Destination{}, false
	}
	script, ok := wikiurl.MetaResourcePath(u)
	if !ok || !strings.EqualFold(script, "index.php") {
		return domain.Destination{}, false
	}
	params := queryParams(u)
	_, hasTitle := params["title"]
	for _, rule := range legacyRules {
		if rule.needsTitle && !hasTitle {
			return domain.Destination{}, false
		}
		if d, matched := rule.match(u, params); matched {
			return d, true
		}
	}
	return domain.Destination{}, false
}

// fallback decides between in-app and external web views by host policy.
func (r Router) fallback(u *url.URL) domain.Destination {
	c := wikiurl.Canonicalize(u)
	if r.Config.HostRoutesInApp(c.Host) {
		return domain.InAppLink(c.String())
	}
	return domain.ExternalLink(c.String())
}

// queryParams flattens the query string; the last occurrence of a duplicated
// parameter wins.
func queryParams(u *url.URL) map[string]string {
	values, _ := url.ParseQuery(u.RawQuery)
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			params[k] = ""
			continue
		}
		params[k] = vs[len(vs)-1]
	}
	return params
}

func parseRevID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// dayIndex reads an "on this day" selection index from the raw query string.
func dayIndex(u *url.URL) *int {
	q := u.RawQuery
	if decoded, err := url.QueryUnescape(q); err == nil {
		q = decoded
	}
	n, err := strconv.Atoi(strings.TrimSpace(q))
	if err != nil {
		return nil
	}
	return &n
}
