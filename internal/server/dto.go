package server

import "wikiroute/internal/domain"

type classifyInput struct {
	Record bool `query:"record" doc:"Append the outcome to the classification log"`
	Body   struct {
		URL string `json:"url" example:"https://en.wikipedia.org/wiki/Dog"`
	}
}

type classifyResult struct {
	Destination    domain.Destination `json:"destination"`
	OpensInBrowser bool               `json:"opens_in_browser"`
}

type classifyOutput struct {
	Body classifyResult `json:"body"`
}

type sitePathInput struct {
	Host string `path:"host"`
}

type siteUpsertInput struct {
	Host string `path:"host"`
	Body struct {
		Language            string `json:"language" example:"en"`
		SupportsUserTalk    bool   `json:"supports_user_talk"`
		SupportsNativeDiff  bool   `json:"supports_native_diff"`
		MainNamespaceNative bool   `json:"main_namespace_native"`
		RoutesMetaPaths     bool   `json:"routes_meta_paths"`
	}
}

type siteOutput struct {
	Body domain.Site `json:"body"`
}

type siteList struct {
	Items []domain.Site `json:"items"`
}

type sitesOutput struct {
	Body siteList `json:"body"`
}

type logInput struct {
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"500"`
	Kind  string `query:"kind"`
	Host  string `query:"host"`
}

type classificationList struct {
	Items []domain.Classification `json:"items"`
}

type logOutput struct {
	Body classificationList `json:"body"`
}

type statusResult struct {
	Counts map[string]int `json:"counts"`
}

type statusOutput struct {
	Body statusResult `json:"body"`
}
