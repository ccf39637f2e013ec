package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"wikiroute/internal/app"
	"wikiroute/internal/domain"
	"wikiroute/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Env      *app.Env
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"url is required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the wikiroute API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Env == nil {
		return nil, errors.New("server: env is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Env.Repo))
	hcfg := huma.DefaultConfig("Wikiroute API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerClassify(group, cfg.Env)
	registerSites(group, cfg.Env)
	registerLog(group, cfg.Env)
	registerStatus(group, cfg.Env)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Wikiroute API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerClassify(api huma.API, env *app.Env) {
	huma.Register(api, huma.Operation{
		OperationID: "classify",
		Method:      http.MethodPost,
		Path:        "/classify",
		Summary:     "Classify a URL",
	}, func(ctx context.Context, input *classifyInput) (*classifyOutput, error) {
		raw := strings.TrimSpace(input.Body.URL)
		if raw == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "url is required", nil)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid url", map[string]any{"url": raw})
		}
		d := env.Router.Destination(ctx, u)
		if input.Record {
			if err := env.Log.Append(ctx, raw, u.Hostname(), d); err != nil {
				log.Printf("classification log append failed: %v", err)
			}
		}
		return &classifyOutput{Body: classifyResult{
			Destination:    d,
			OpensInBrowser: d.Kind == domain.KindInAppLink || d.Kind == domain.KindExternalLink,
		}}, nil
	})
}

func registerSites(api huma.API, env *app.Env) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sites",
		Method:      http.MethodGet,
		Path:        "/sites",
		Summary:     "List registered sites",
	}, func(ctx context.Context, _ *struct{}) (*sitesOutput, error) {
		items, err := env.Repo.ListSites(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &sitesOutput{Body: siteList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-site",
		Method:      http.MethodPut,
		Path:        "/sites/{host}",
		Summary:     "Create or update a site registry entry",
	}, func(ctx context.Context, input *siteUpsertInput) (*siteOutput, error) {
		s := domain.Site{
			Host:                strings.ToLower(input.Host),
			Language:            input.Body.Language,
			SupportsUserTalk:    input.Body.SupportsUserTalk,
			SupportsNativeDiff:  input.Body.SupportsNativeDiff,
			MainNamespaceNative: input.Body.MainNamespaceNative,
			RoutesMetaPaths:     input.Body.RoutesMetaPaths,
		}
		if err := env.Repo.UpsertSite(ctx, s); err != nil {
			return nil, handleError(err)
		}
		stored, err := env.Repo.GetSite(ctx, s.Host)
		if err != nil {
			return nil, handleError(err)
		}
		return &siteOutput{Body: stored}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-site",
		Method:      http.MethodDelete,
		Path:        "/sites/{host}",
		Summary:     "Delete a site registry entry",
	}, func(ctx context.Context, input *sitePathInput) (*struct{}, error) {
		if err := env.Repo.DeleteSite(ctx, input.Host); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLog(api huma.API, env *app.Env) {
	huma.Register(api, huma.Operation{
		OperationID: "classification-log",
		Method:      http.MethodGet,
		Path:        "/log",
		Summary:     "Latest classifications",
	}, func(ctx context.Context, input *logInput) (*logOutput, error) {
		items, err := env.Repo.LatestClassifications(ctx, input.Limit, input.Kind, input.Host)
		if err != nil {
			return nil, handleError(err)
		}
		return &logOutput{Body: classificationList{Items: items}}, nil
	})
}

func registerStatus(api huma.API, env *app.Env) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Classification counts by kind",
	}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
		counts, err := env.Repo.CountClassificationsByKind(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &statusOutput{Body: statusResult{Counts: counts}}, nil
	})
}
