package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wikiroute/internal/app"
	"wikiroute/internal/config"
	"wikiroute/internal/db"
	"wikiroute/internal/domain"
	"wikiroute/internal/repo"
	"wikiroute/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "wr",
	Short: "Wikiroute CLI",
	Long: `Wikiroute classifies wiki URLs into a closed set of destinations.
Every URL resolves to exactly one destination: a native article, talk or
user-talk page, a revision diff or history view, search results, an "on this
day" feed, hosted audio, or a plain in-app/external web link. Site
capabilities come from a built-in wikipedia host parser, the workspace
registry (wr site set), and wikiroute.yml overrides.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WIKIROUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(siteCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func classifyCmd() *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "classify [url...]",
		Short: "Classify URLs into destinations",
		Long:  "Classify each URL argument; with no arguments, URLs are read line by line from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if len(urls) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line != "" {
						urls = append(urls, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			}
			if len(urls) == 0 {
				return fmt.Errorf("no urls given")
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				results := make([]classifyRow, 0, len(urls))
				for _, raw := range urls {
					u, err := url.Parse(raw)
					if err != nil {
						u = &url.URL{}
					}
					d := env.Router.Destination(ctx, u)
					if record {
						if err := env.Log.Append(ctx, raw, u.Hostname(), d); err != nil {
							return fmt.Errorf("append classification log: %w", err)
						}
					}
					results = append(results, classifyRow{
						URL:            raw,
						Destination:    d,
						OpensInBrowser: env.Router.OpensInBrowser(ctx, u),
					})
				}
				if viper.GetBool("json") {
					return printJSON(results)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"URL", "Kind", "Detail", "Browser"})
				for _, row := range results {
					tw.AppendRow(table.Row{row.URL, row.Destination.Kind, destinationDetail(row.Destination), row.OpensInBrowser})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "append outcomes to the classification log")
	return cmd
}

type classifyRow struct {
	URL            string             `json:"url"`
	Destination    domain.Destination `json:"destination"`
	OpensInBrowser bool               `json:"opens_in_browser"`
}

func destinationDetail(d domain.Destination) string {
	switch d.Kind {
	case domain.KindArticleHistory:
		return d.Title
	case domain.KindSearch:
		return d.SearchTerm
	case domain.KindDiffCompare, domain.KindDiffSingle:
		from, to := "-", "-"
		if d.FromRevID != nil {
			from = fmt.Sprintf("%d", *d.FromRevID)
		}
		if d.ToRevID != nil {
			to = fmt.Sprintf("%d", *d.ToRevID)
		}
		return fmt.Sprintf("%s...%s", from, to)
	case domain.KindOnThisDay:
		if d.Day != nil {
			return fmt.Sprintf("day %d", *d.Day)
		}
	}
	return ""
}

func siteCmd() *cobra.Command {
	site := &cobra.Command{Use: "site", Short: "Manage the site registry"}
	site.AddCommand(siteListCmd())
	site.AddCommand(siteShowCmd())
	site.AddCommand(siteSetCmd())
	site.AddCommand(siteRemoveCmd())
	return site
}

func siteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				sites, err := env.Repo.ListSites(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sites)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Host", "Lang", "UserTalk", "Diff", "MainNS", "MetaPaths"})
				for _, s := range sites {
					tw.AppendRow(table.Row{s.Host, s.Language, s.SupportsUserTalk, s.SupportsNativeDiff, s.MainNamespaceNative, s.RoutesMetaPaths})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func siteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <host>",
		Short: "Show a registered site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				s, err := env.Repo.GetSite(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func siteSetCmd() *cobra.Command {
	var language string
	var userTalk, nativeDiff, mainNS, metaPaths bool
	cmd := &cobra.Command{
		Use:   "set <host>",
		Short: "Create or update a site registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if language == "" {
				return fmt.Errorf("--language required")
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				s := domain.Site{
					Host:                strings.ToLower(args[0]),
					Language:            language,
					SupportsUserTalk:    userTalk,
					SupportsNativeDiff:  nativeDiff,
					MainNamespaceNative: mainNS,
					RoutesMetaPaths:     metaPaths,
				}
				if err := env.Repo.UpsertSite(ctx, s); err != nil {
					return err
				}
				stored, err := env.Repo.GetSite(ctx, s.Host)
				if err != nil {
					return err
				}
				return printJSONOrTable(stored)
			})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language code")
	cmd.Flags().BoolVar(&userTalk, "user-talk", true, "supports native user talk pages")
	cmd.Flags().BoolVar(&nativeDiff, "native-diff", true, "supports native diff pages")
	cmd.Flags().BoolVar(&mainNS, "main-namespace-native", true, "main namespace opens the native article view")
	cmd.Flags().BoolVar(&metaPaths, "meta-paths", true, "considers /w/ resource paths for routing")
	return cmd
}

func siteRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <host>",
		Short: "Remove a site registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return env.Repo.DeleteSite(ctx, args[0])
			})
		},
	}
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Classification log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var kind, host string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.LatestClassifications(ctx, n, kind, host)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Kind", "URL"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.TS, c.Kind, c.URL})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&kind, "kind", "", "destination kind filter")
	cmd.Flags().StringVar(&host, "host", "", "host filter")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Classification counts by kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				counts, err := env.Repo.CountClassificationsByKind(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(counts)
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default wikiroute.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config %s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate and import a config file into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			path := config.Path(viper.GetString("workspace"))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Imported %s (%d in-app suffixes)\n", path, len(cfg.Routing.InAppHostSuffixes))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file to import")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (secret is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				secret := uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := env.Repo.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				fmt.Printf("id: %s\nkey: %s\n", key.ID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				keys, err := env.Repo.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return env.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			env, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer env.Close()
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("WIKIROUTE_JWT_SECRET")}
			authCfg.Require = authCfg.JWTSecret != ""
			if !authCfg.Require {
				fmt.Println("WIKIROUTE_JWT_SECRET not set; serving without authentication")
			}
			handler, err := server.New(server.Config{Env: env, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Wikiroute API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	env, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
