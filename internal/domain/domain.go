package domain

// DestinationKind discriminates the closed set of classification outcomes.
type DestinationKind string

const (
	KindInAppLink      DestinationKind = "in_app_link"
	KindExternalLink   DestinationKind = "external_link"
	KindArticle        DestinationKind = "article"
	KindArticleHistory DestinationKind = "article_history"
	KindDiffCompare    DestinationKind = "article_diff_compare"
	KindDiffSingle     DestinationKind = "article_diff_single"
	KindTalk           DestinationKind = "talk"
	KindUserTalk       DestinationKind = "user_talk"
	KindSearch         DestinationKind = "search"
	KindAudio          DestinationKind = "audio"
	KindOnThisDay      DestinationKind = "on_this_day"
)

// Destination says how a URL should be handled by the consuming app.
// Only payload fields relevant to the kind are set; the rest stay zero, so
// two destinations built from the same URL compare equal iff kinds match.
type Destination struct {
	Kind       DestinationKind `json:"kind"`
	URL        string          `json:"url"`
	Title      string          `json:"title,omitempty"`
	FromRevID  *int64          `json:"from_rev_id,omitempty"`
	ToRevID    *int64          `json:"to_rev_id,omitempty"`
	SearchTerm string          `json:"search_term,omitempty"`
	Day        *int            `json:"day,omitempty"`
}

func InAppLink(url string) Destination {
	return Destination{Kind: KindInAppLink, URL: url}
}

func ExternalLink(url string) Destination {
	return Destination{Kind: KindExternalLink, URL: url}
}

func Article(url string) Destination {
	return Destination{Kind: KindArticle, URL: url}
}

func ArticleHistory(url, title string) Destination {
	return Destination{Kind: KindArticleHistory, URL: url, Title: title}
}

// DiffCompare compares two revisions; either end may be open (nil).
func DiffCompare(url string, from, to *int64) Destination {
	return Destination{Kind: KindDiffCompare, URL: url, FromRevID: from, ToRevID: to}
}

// DiffSingle shows a single revision against its parent.
func DiffSingle(url string, to int64) Destination {
	return Destination{Kind: KindDiffSingle, URL: url, ToRevID: &to}
}

func Talk(url string) Destination {
	return Destination{Kind: KindTalk, URL: url}
}

func UserTalk(url string) Destination {
	return Destination{Kind: KindUserTalk, URL: url}
}

func Search(url, term string) Destination {
	return Destination{Kind: KindSearch, URL: url, SearchTerm: term}
}

func Audio(url string) Destination {
	return Destination{Kind: KindAudio, URL: url}
}

func OnThisDay(url string, day *int) Destination {
	return Destination{Kind: KindOnThisDay, URL: url, Day: day}
}

// Namespace is the wiki category a page title belongs to.
type Namespace string

const (
	NamespaceMain      Namespace = "main"
	NamespaceTalk      Namespace = "talk"
	NamespaceUserTalk  Namespace = "user_talk"
	NamespaceSpecial   Namespace = "special"
	NamespaceWikipedia Namespace = "wikipedia"
	NamespaceOther     Namespace = "other"
)

// Site is the capability profile of the wiki a URL targets. Pure data; the
// router reads the flags per classification call and never caches them.
type Site struct {
	Host                string `json:"host"`
	Language            string `json:"language"`
	SupportsUserTalk    bool   `json:"supports_user_talk"`
	SupportsNativeDiff  bool   `json:"supports_native_diff"`
	MainNamespaceNative bool   `json:"main_namespace_native"`
	RoutesMetaPaths     bool   `json:"routes_meta_paths"`
	CreatedAt           string `json:"created_at,omitempty" format:"date-time"`
	UpdatedAt           string `json:"updated_at,omitempty" format:"date-time"`
}

// Classification is one entry of the audit log.
type Classification struct {
	ID          string `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	URL         string `json:"url"`
	Host        string `json:"host,omitempty"`
	Kind        string `json:"kind"`
	PayloadJSON string `json:"payload_json"`
}

// APIKey authenticates API callers; only the hash is stored.
type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
