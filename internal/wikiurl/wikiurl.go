// Package wikiurl implements URL canonicalization and wiki-specific URL
// segmentation: resource-path extraction, namespace/title splitting, and
// hosted-audio detection. All functions are pure and never mutate their input.
package wikiurl

import (
	"net/url"
	"path"
	"strings"

	"wikiroute/internal/domain"
)

// Canonicalize returns a normalized copy of u: https scheme, lowercased host,
// default port and fragment stripped. Idempotent.
func Canonicalize(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{Scheme: "https"}
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Scheme == "" || c.Scheme == "http" {
		c.Scheme = "https"
	}
	host := strings.ToLower(c.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	c.Host = host
	return &c
}

// WikiResourcePath extracts the page-addressing portion of the path
// (everything after /wiki/). Returns false when the URL has none.
func WikiResourcePath(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, "/wiki/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// MetaResourcePath extracts the legacy script portion of the path
// (everything after /w/). Returns false when the URL has none.
func MetaResourcePath(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, "/w/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// NormalizeTitle percent-decodes a title and converts underscores to spaces.
func NormalizeTitle(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

// normalizeKey folds a title or namespace prefix for comparison.
func normalizeKey(s string) string {
	return strings.ToLower(NormalizeTitle(s))
}

// localizedNamespaces maps per-language namespace prefixes. The canonical
// English prefixes are accepted on every wiki in addition to these.
var localizedNamespaces = map[string]map[string]domain.Namespace{
	"de": {
		"diskussion":          domain.NamespaceTalk,
		"benutzer diskussion": domain.NamespaceUserTalk,
		"spezial":             domain.NamespaceSpecial,
	},
	"fr": {
		"discussion":             domain.NamespaceTalk,
		"discussion utilisateur": domain.NamespaceUserTalk,
		"spécial":                domain.NamespaceSpecial,
		"wikipédia":              domain.NamespaceWikipedia,
	},
	"es": {
		"discusión":         domain.NamespaceTalk,
		"usuario discusión": domain.NamespaceUserTalk,
		"especial":          domain.NamespaceSpecial,
	},
	"it": {
		"discussione":       domain.NamespaceTalk,
		"discussioni utente": domain.NamespaceUserTalk,
		"speciale":          domain.NamespaceSpecial,
	},
	"pt": {
		"discussão":         domain.NamespaceTalk,
		"usuário discussão": domain.NamespaceUserTalk,
		"especial":          domain.NamespaceSpecial,
	},
	"ru": {
		"обсуждение":           domain.NamespaceTalk,
		"обсуждение участника": domain.NamespaceUserTalk,
		"служебная":            domain.NamespaceSpecial,
		"википедия":            domain.NamespaceWikipedia,
	},
	"ja": {
		"ノート":     domain.NamespaceTalk,
		"利用者‐会話": domain.NamespaceUserTalk,
		"特別":       domain.NamespaceSpecial,
	},
}

// canonicalNamespaces are valid on every language wiki.
var canonicalNamespaces = map[string]domain.Namespace{
	"talk":      domain.NamespaceTalk,
	"user talk": domain.NamespaceUserTalk,
	"special":   domain.NamespaceSpecial,
	"wikipedia": domain.NamespaceWikipedia,
	"project":   domain.NamespaceWikipedia,
}

// otherNamespacePrefixes are recognized namespaces that never route natively.
var otherNamespacePrefixes = map[string]struct{}{
	"user": {}, "file": {}, "image": {}, "media": {}, "category": {},
	"template": {}, "template talk": {}, "help": {}, "help talk": {},
	"portal": {}, "draft": {}, "mediawiki": {}, "module": {}, "timedtext": {},
	"category talk": {}, "file talk": {},
}

// NamespaceAndTitle splits a wiki resource path into its namespace and
// normalized title, using the language for localized prefix recognition.
// Titles with an unknown colon prefix belong to the main namespace.
func NamespaceAndTitle(resource, language string) (domain.Namespace, string) {
	prefix, rest, found := strings.Cut(resource, ":")
	if !found {
		return domain.NamespaceMain, NormalizeTitle(resource)
	}
	key := normalizeKey(prefix)
	if ns, ok := localizedNamespaces[language][key]; ok {
		return ns, NormalizeTitle(rest)
	}
	if ns, ok := canonicalNamespaces[key]; ok {
		return ns, NormalizeTitle(rest)
	}
	if _, ok := otherNamespacePrefixes[key]; ok {
		return domain.NamespaceOther, NormalizeTitle(rest)
	}
	return domain.NamespaceMain, NormalizeTitle(resource)
}

// mainPageTitles is the designated home page title per language.
var mainPageTitles = map[string]string{
	"en": "Main Page",
	"de": "Wikipedia:Hauptseite",
	"fr": "Wikipédia:Accueil principal",
	"es": "Wikipedia:Portada",
	"it": "Pagina principale",
	"pt": "Wikipédia:Página principal",
	"ru": "Заглавная страница",
	"ja": "メインページ",
	"zh": "Wikipedia:首页",
}

// IsMainPageTitle reports whether title is the wiki's home page title.
// Comparison ignores case and underscore/space differences.
func IsMainPageTitle(title, language string) bool {
	main, ok := mainPageTitles[language]
	if !ok {
		main = mainPageTitles["en"]
	}
	return normalizeKey(title) == normalizeKey(main)
}

const audioHost = "upload.wikimedia.org"

var audioExtensions = map[string]struct{}{
	".ogg": {}, ".oga": {}, ".opus": {}, ".flac": {}, ".wav": {}, ".mp3": {},
}

// IsHostedAudioLink reports whether u points at an audio file on the
// wikimedia upload host.
func IsHostedAudioLink(u *url.URL) bool {
	if u == nil {
		return false
	}
	if !strings.EqualFold(u.Hostname(), audioHost) {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	_, ok := audioExtensions[ext]
	return ok
}

// AdjustForAudioPlayback rewrites a hosted audio URL to the transcoded MP3
// rendition so platform players without ogg support can handle it. URLs that
// already point at an MP3 or a transcoded rendition only get canonicalized.
func AdjustForAudioPlayback(u *url.URL) *url.URL {
	c := Canonicalize(u)
	ext := strings.ToLower(path.Ext(c.Path))
	if ext == ".mp3" {
		return c
	}
	segs := strings.Split(strings.TrimPrefix(c.Path, "/"), "/")
	if len(segs) < 3 {
		return c
	}
	for _, s := range segs {
		if s == "transcoded" {
			return c
		}
	}
	// /wikipedia/commons/a/ab/F.ogg -> /wikipedia/commons/transcoded/a/ab/F.ogg/F.ogg.mp3
	file := segs[len(segs)-1]
	rewritten := append([]string{}, segs[:2]...)
	rewritten = append(rewritten, "transcoded")
	rewritten = append(rewritten, segs[2:]...)
	rewritten = append(rewritten, file+".mp3")
	c.Path = "/" + strings.Join(rewritten, "/")
	c.RawPath = ""
	return c
}
