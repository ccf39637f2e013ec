package router

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"wikiroute/internal/config"
	"wikiroute/internal/domain"
	"wikiroute/internal/wikiurl"
)

type stubResolver struct {
	site *domain.Site
	err  error
}

func (s stubResolver) ResolveSite(ctx context.Context, u *url.URL) (*domain.Site, error) {
	return s.site, s.err
}

func enwiki() *domain.Site {
	return &domain.Site{
		Host:                "en.wikipedia.org",
		Language:            "en",
		SupportsUserTalk:    true,
		SupportsNativeDiff:  true,
		MainNamespaceNative: true,
		RoutesMetaPaths:     true,
	}
}

func newRouter(site *domain.Site) Router {
	return New(stubResolver{site: site}, config.Default())
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func classify(t *testing.T, r Router, raw string) domain.Destination {
	t.Helper()
	return r.Destination(context.Background(), mustParse(t, raw))
}

func TestArticlePath(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Dog")
	if d.Kind != domain.KindArticle {
		t.Fatalf("expected article, got %s", d.Kind)
	}
	if d.URL != "https://en.wikipedia.org/wiki/Dog" {
		t.Fatalf("unexpected url %s", d.URL)
	}
}

func TestMainPageIsNotAnArticle(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Main_Page")
	if d.Kind == domain.KindArticle {
		t.Fatalf("main page must not classify as article")
	}
	// wikipedia.org is an in-app suffix in the default config
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected in_app_link, got %s", d.Kind)
	}
}

func TestMainNamespaceGate(t *testing.T) {
	site := enwiki()
	site.MainNamespaceNative = false
	r := newRouter(site)
	d := classify(t, r, "https://en.wikipedia.org/wiki/Dog")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected in_app_link when main namespace is not native, got %s", d.Kind)
	}
}

func TestTalkRequiresBothFlags(t *testing.T) {
	raw := "https://en.wikipedia.org/wiki/Talk:Dog"

	r := newRouter(enwiki())
	if d := classify(t, r, raw); d.Kind != domain.KindTalk {
		t.Fatalf("expected talk, got %s", d.Kind)
	}

	site := enwiki()
	site.SupportsUserTalk = false
	r = newRouter(site)
	if d := classify(t, r, raw); d.Kind == domain.KindTalk {
		t.Fatalf("talk must not fire without site support")
	}

	cfg := config.Default()
	cfg.Features.NativeTalkPages = false
	r = New(stubResolver{site: enwiki()}, cfg)
	if d := classify(t, r, raw); d.Kind == domain.KindTalk {
		t.Fatalf("talk must not fire with the feature disabled")
	}
}

func TestUserTalk(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/User_talk:Jimbo_Wales")
	if d.Kind != domain.KindUserTalk {
		t.Fatalf("expected user_talk, got %s", d.Kind)
	}

	site := enwiki()
	site.SupportsUserTalk = false
	r = newRouter(site)
	d = classify(t, r, "https://en.wikipedia.org/wiki/User_talk:Jimbo_Wales")
	if d.Kind == domain.KindUserTalk {
		t.Fatalf("user_talk must not fire without site support")
	}
}

func TestLocalizedUserTalk(t *testing.T) {
	site := enwiki()
	site.Host = "de.wikipedia.org"
	site.Language = "de"
	r := newRouter(site)
	d := classify(t, r, "https://de.wikipedia.org/wiki/Benutzer_Diskussion:Jimbo")
	if d.Kind != domain.KindUserTalk {
		t.Fatalf("expected user_talk for localized prefix, got %s", d.Kind)
	}
}

func TestMobileDiffCompareWinsOverSingle(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Special:MobileDiff/100...200")
	if d.Kind != domain.KindDiffCompare {
		t.Fatalf("expected compare, got %s", d.Kind)
	}
	if d.FromRevID == nil || *d.FromRevID != 100 || d.ToRevID == nil || *d.ToRevID != 200 {
		t.Fatalf("unexpected revision ids %v %v", d.FromRevID, d.ToRevID)
	}

	d = classify(t, r, "https://en.wikipedia.org/wiki/Special:MobileDiff/100")
	if d.Kind != domain.KindDiffSingle {
		t.Fatalf("expected single, got %s", d.Kind)
	}
	if d.ToRevID == nil || *d.ToRevID != 100 {
		t.Fatalf("unexpected revision id %v", d.ToRevID)
	}
}

func TestSpecialHistoryPath(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Special:History/Albert_Einstein")
	if d.Kind != domain.KindArticleHistory {
		t.Fatalf("expected article_history, got %s", d.Kind)
	}
	if d.Title != "Albert Einstein" {
		t.Fatalf("unexpected title %q", d.Title)
	}
}

func TestSpecialGatedOnNativeDiff(t *testing.T) {
	site := enwiki()
	site.SupportsNativeDiff = false
	r := newRouter(site)
	d := classify(t, r, "https://en.wikipedia.org/wiki/Special:MobileDiff/100...200")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected fallback without native diff, got %s", d.Kind)
	}
}

func TestOnThisDay(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Wikipedia:On_this_day/Today?3")
	if d.Kind != domain.KindOnThisDay {
		t.Fatalf("expected on_this_day, got %s", d.Kind)
	}
	if d.Day == nil || *d.Day != 3 {
		t.Fatalf("unexpected day %v", d.Day)
	}

	d = classify(t, r, "https://en.wikipedia.org/wiki/Wikipedia:On_this_day/Today")
	if d.Kind != domain.KindOnThisDay || d.Day != nil {
		t.Fatalf("expected on_this_day without day, got %s %v", d.Kind, d.Day)
	}
}

func TestSearchWinsOverEverything(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?search=dog+breeds&action=history&title=Dog")
	if d.Kind != domain.KindSearch {
		t.Fatalf("expected search, got %s", d.Kind)
	}
	if d.SearchTerm != "dog breeds" {
		t.Fatalf("unexpected term %q", d.SearchTerm)
	}
}

func TestSearchNeedsNoTitle(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?search=")
	if d.Kind != domain.KindSearch || d.SearchTerm != "" {
		t.Fatalf("expected empty search, got %s %q", d.Kind, d.SearchTerm)
	}
}

func TestLegacyRulesNeedTitle(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?action=history")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected fallback without title, got %s", d.Kind)
	}
}

func TestLegacyHistory(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?title=Albert_Einstein&action=history")
	if d.Kind != domain.KindArticleHistory || d.Title != "Albert Einstein" {
		t.Fatalf("expected history of Albert Einstein, got %s %q", d.Kind, d.Title)
	}

	d = classify(t, r, "https://en.wikipedia.org/w/index.php?title=Dog&action=history&limit=50&dir=prev")
	if d.Kind != domain.KindArticleHistory || d.Title != "Dog" {
		t.Fatalf("expected paged history, got %s %q", d.Kind, d.Title)
	}
}

func TestLegacyRevisionDiff(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?title=Dog&type=revision&diff=200&oldid=100")
	if d.Kind != domain.KindDiffCompare {
		t.Fatalf("expected compare, got %s", d.Kind)
	}
	if d.FromRevID == nil || *d.FromRevID != 100 || d.ToRevID == nil || *d.ToRevID != 200 {
		t.Fatalf("unexpected revision ids %v %v", d.FromRevID, d.ToRevID)
	}
}

func TestLegacyDiffPrevNext(t *testing.T) {
	r := newRouter(enwiki())

	d := classify(t, r, "https://en.wikipedia.org/w/index.php?title=Dog&diff=prev&oldid=500")
	if d.Kind != domain.KindDiffCompare {
		t.Fatalf("expected compare, got %s", d.Kind)
	}
	if d.FromRevID != nil || d.ToRevID == nil || *d.ToRevID != 500 {
		t.Fatalf("diff=prev expects open from and to=oldid, got %v %v", d.FromRevID, d.ToRevID)
	}

	d = classify(t, r, "https://en.wikipedia.org/w/index.php?title=Dog&diff=next&oldid=500")
	if d.Kind != domain.KindDiffCompare {
		t.Fatalf("expected compare, got %s", d.Kind)
	}
	if d.ToRevID != nil || d.FromRevID == nil || *d.FromRevID != 500 {
		t.Fatalf("diff=next expects from=oldid and open to, got %v %v", d.FromRevID, d.ToRevID)
	}
}

func TestLegacyOldRevision(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?title=Dog&oldid=321")
	if d.Kind != domain.KindDiffSingle {
		t.Fatalf("expected single, got %s", d.Kind)
	}
	if d.ToRevID == nil || *d.ToRevID != 321 {
		t.Fatalf("unexpected revision id %v", d.ToRevID)
	}
}

func TestDuplicateParamLastWins(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?search=first&search=second")
	if d.SearchTerm != "second" {
		t.Fatalf("expected last duplicate to win, got %q", d.SearchTerm)
	}
}

func TestMetaPathsGate(t *testing.T) {
	site := enwiki()
	site.RoutesMetaPaths = false
	r := newRouter(site)
	d := classify(t, r, "https://en.wikipedia.org/w/index.php?search=dog")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected fallback when meta paths are off, got %s", d.Kind)
	}
}

func TestHostedAudioWithoutSite(t *testing.T) {
	r := newRouter(nil)
	d := classify(t, r, "https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.ogg")
	if d.Kind != domain.KindAudio {
		t.Fatalf("expected audio, got %s", d.Kind)
	}
	want := "https://upload.wikimedia.org/wikipedia/commons/transcoded/a/ab/Example.ogg/Example.ogg.mp3"
	if d.URL != want {
		t.Fatalf("unexpected playback url %s", d.URL)
	}
}

func TestAudioOnlyWhenNoSiteMatches(t *testing.T) {
	r := newRouter(enwiki())
	d := classify(t, r, "https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.ogg")
	if d.Kind == domain.KindAudio {
		t.Fatalf("audio must not fire when a site is identified")
	}
}

func TestFallbackHostPolicy(t *testing.T) {
	r := newRouter(nil)

	d := classify(t, r, "https://commons.wikimedia.org/wiki/File:Example.png")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("expected in_app_link for wikimedia suffix, got %s", d.Kind)
	}

	d = classify(t, r, "https://example.com/page")
	if d.Kind != domain.KindExternalLink {
		t.Fatalf("expected external_link, got %s", d.Kind)
	}
}

func TestResolverErrorDegradesToFallback(t *testing.T) {
	r := New(stubResolver{err: errors.New("db down")}, config.Default())
	d := classify(t, r, "https://en.wikipedia.org/wiki/Dog")
	if d.Kind != domain.KindInAppLink {
		t.Fatalf("resolver failure must degrade to a web link, got %s", d.Kind)
	}
}

func TestClassificationIsTotal(t *testing.T) {
	r := newRouter(nil)
	d := r.Destination(context.Background(), nil)
	if d.Kind != domain.KindExternalLink {
		t.Fatalf("expected external_link for nil url, got %s", d.Kind)
	}
	d = classify(t, r, "")
	if d.Kind != domain.KindExternalLink {
		t.Fatalf("expected external_link for empty url, got %s", d.Kind)
	}
}

func TestCanonicalizedInputIsStable(t *testing.T) {
	r := newRouter(enwiki())
	for _, raw := range []string{
		"http://EN.wikipedia.org:443/wiki/Dog#History",
		"https://en.wikipedia.org/wiki/Talk:Dog",
		"https://en.wikipedia.org/w/index.php?title=Dog&oldid=321",
		"https://example.com/page",
	} {
		u := mustParse(t, raw)
		direct := r.Destination(context.Background(), u)
		canonical := r.Destination(context.Background(), wikiurl.Canonicalize(u))
		if !reflect.DeepEqual(direct, canonical) {
			t.Fatalf("%s: destination changed after canonicalization: %+v vs %+v", raw, direct, canonical)
		}
	}
}

func TestOpensInBrowser(t *testing.T) {
	r := newRouter(enwiki())
	ctx := context.Background()

	cases := []struct {
		raw  string
		want bool
	}{
		{"https://en.wikipedia.org/wiki/Dog", false},
		{"https://en.wikipedia.org/wiki/Talk:Dog", false},
		{"https://en.wikipedia.org/w/index.php?search=dog", false},
		{"https://en.wikipedia.org/wiki/Main_Page", true},
		{"https://en.wikipedia.org/w/index.php?action=history", true},
	}
	for _, tc := range cases {
		if got := r.OpensInBrowser(ctx, mustParse(t, tc.raw)); got != tc.want {
			t.Fatalf("%s: OpensInBrowser=%v, want %v", tc.raw, got, tc.want)
		}
	}

	ext := newRouter(nil)
	if !ext.OpensInBrowser(ctx, mustParse(t, "https://example.com/page")) {
		t.Fatalf("external link should open in browser")
	}
}
