package wikiurl

import (
	"net/url"
	"testing"

	"wikiroute/internal/domain"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://EN.Wikipedia.org/wiki/Dog", "https://en.wikipedia.org/wiki/Dog"},
		{"https://en.wikipedia.org:443/wiki/Dog", "https://en.wikipedia.org/wiki/Dog"},
		{"http://en.wikipedia.org:80/wiki/Dog", "https://en.wikipedia.org/wiki/Dog"},
		{"https://en.wikipedia.org/wiki/Dog#History", "https://en.wikipedia.org/wiki/Dog"},
		{"//en.wikipedia.org/wiki/Dog", "https://en.wikipedia.org/wiki/Dog"},
	}
	for _, tc := range cases {
		u := mustParse(t, tc.in)
		got := Canonicalize(u)
		if got.String() != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.in, got.String(), tc.want)
		}
		again := Canonicalize(got)
		if again.String() != tc.want {
			t.Fatalf("%s: not idempotent, second pass gave %s", tc.in, again.String())
		}
	}
}

func TestCanonicalizeDoesNotMutate(t *testing.T) {
	u := mustParse(t, "http://EN.wikipedia.org/wiki/Dog#frag")
	_ = Canonicalize(u)
	if u.Scheme != "http" || u.Host != "EN.wikipedia.org" || u.Fragment != "frag" {
		t.Fatalf("input mutated: %s", u.String())
	}
}

func TestResourcePaths(t *testing.T) {
	if r, ok := WikiResourcePath(mustParse(t, "https://en.wikipedia.org/wiki/Talk:Dog")); !ok || r != "Talk:Dog" {
		t.Fatalf("wiki path: got %q %v", r, ok)
	}
	if _, ok := WikiResourcePath(mustParse(t, "https://en.wikipedia.org/wiki/")); ok {
		t.Fatalf("empty wiki resource must not match")
	}
	if _, ok := WikiResourcePath(mustParse(t, "https://en.wikipedia.org/w/index.php")); ok {
		t.Fatalf("/w/ path must not match wiki resource")
	}
	if s, ok := MetaResourcePath(mustParse(t, "https://en.wikipedia.org/w/index.php")); !ok || s != "index.php" {
		t.Fatalf("meta path: got %q %v", s, ok)
	}
	if _, ok := MetaResourcePath(mustParse(t, "https://en.wikipedia.org/wiki/Dog")); ok {
		t.Fatalf("/wiki/ path must not match meta resource")
	}
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Albert_Einstein", "Albert Einstein"},
		{"Albert%20Einstein", "Albert Einstein"},
		{"  Dog ", "Dog"},
		{"C%2B%2B", "C++"},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNamespaceAndTitle(t *testing.T) {
	cases := []struct {
		resource string
		language string
		ns       domain.Namespace
		title    string
	}{
		{"Dog", "en", domain.NamespaceMain, "Dog"},
		{"Talk:Dog", "en", domain.NamespaceTalk, "Dog"},
		{"User_talk:Jimbo_Wales", "en", domain.NamespaceUserTalk, "Jimbo Wales"},
		{"Special:MobileDiff/100", "en", domain.NamespaceSpecial, "MobileDiff/100"},
		{"Wikipedia:On_this_day/Today", "en", domain.NamespaceWikipedia, "On this day/Today"},
		{"Project:About", "en", domain.NamespaceWikipedia, "About"},
		{"Benutzer_Diskussion:Jimbo", "de", domain.NamespaceUserTalk, "Jimbo"},
		{"Diskussion:Hund", "de", domain.NamespaceTalk, "Hund"},
		{"Discussion:Chien", "fr", domain.NamespaceTalk, "Chien"},
		// canonical prefixes work on every wiki
		{"Talk:Hund", "de", domain.NamespaceTalk, "Hund"},
		// recognized but never natively routed
		{"File:Example.png", "en", domain.NamespaceOther, "Example.png"},
		{"Category:Mammals", "en", domain.NamespaceOther, "Mammals"},
		// unknown colon prefix stays in main with the full title
		{"Star_Trek:_The_Next_Generation", "en", domain.NamespaceMain, "Star Trek: The Next Generation"},
	}
	for _, tc := range cases {
		ns, title := NamespaceAndTitle(tc.resource, tc.language)
		if ns != tc.ns || title != tc.title {
			t.Fatalf("%s (%s): got %s %q, want %s %q", tc.resource, tc.language, ns, title, tc.ns, tc.title)
		}
	}
}

func TestIsMainPageTitle(t *testing.T) {
	if !IsMainPageTitle("Main Page", "en") {
		t.Fatalf("en main page not recognized")
	}
	if !IsMainPageTitle("main_page", "en") {
		t.Fatalf("comparison must ignore case and underscores")
	}
	if IsMainPageTitle("Dog", "en") {
		t.Fatalf("Dog is not the main page")
	}
	if !IsMainPageTitle("Заглавная страница", "ru") {
		t.Fatalf("ru main page not recognized")
	}
	// unknown language falls back to the English title
	if !IsMainPageTitle("Main Page", "xx") {
		t.Fatalf("fallback to english title failed")
	}
}

func TestIsHostedAudioLink(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.ogg", true},
		{"https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.OGG", true},
		{"https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.mp3", true},
		{"https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.png", false},
		{"https://en.wikipedia.org/wiki/File:Example.ogg", false},
	}
	for _, tc := range cases {
		if got := IsHostedAudioLink(mustParse(t, tc.raw)); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestAdjustForAudioPlayback(t *testing.T) {
	got := AdjustForAudioPlayback(mustParse(t, "https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.ogg"))
	want := "https://upload.wikimedia.org/wikipedia/commons/transcoded/a/ab/Example.ogg/Example.ogg.mp3"
	if got.String() != want {
		t.Fatalf("got %s, want %s", got.String(), want)
	}

	// mp3 files and already-transcoded renditions pass through
	mp3 := "https://upload.wikimedia.org/wikipedia/commons/a/ab/Example.mp3"
	if got := AdjustForAudioPlayback(mustParse(t, mp3)); got.String() != mp3 {
		t.Fatalf("mp3 rewritten: %s", got.String())
	}
	if got := AdjustForAudioPlayback(mustParse(t, want)); got.String() != want {
		t.Fatalf("transcoded rewritten: %s", got.String())
	}
}
