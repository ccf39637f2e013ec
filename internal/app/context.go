package app

import (
	"database/sql"

	"wikiroute/internal/config"
	"wikiroute/internal/db"
	"wikiroute/internal/events"
	"wikiroute/internal/migrate"
	"wikiroute/internal/repo"
	"wikiroute/internal/router"
	"wikiroute/internal/sites"
)

// Env bundles the dependencies shared by the CLI and the API server.
type Env struct {
	DB     *sql.DB
	Repo   repo.Repo
	Config *config.Config
	Router router.Router
	Log    events.Writer
}

// Open prepares a workspace: database, migrations, config (file when present,
// defaults otherwise), and the assembled router.
func Open(workspace string) (*Env, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: conn}
	resolver := sites.Resolver{Repo: r, Config: cfg}
	return &Env{
		DB:     conn,
		Repo:   r,
		Config: cfg,
		Router: router.New(resolver, cfg),
		Log:    events.Writer{DB: conn},
	}, nil
}

func (e *Env) Close() error {
	return e.DB.Close()
}
