package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"wikiroute/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const siteColumns = `host, language, supports_user_talk, supports_native_diff, main_namespace_native, routes_meta_paths, created_at, updated_at`

func scanSite(scan func(dest ...any) error) (domain.Site, error) {
	var s domain.Site
	err := scan(&s.Host, &s.Language, &s.SupportsUserTalk, &s.SupportsNativeDiff, &s.MainNamespaceNative, &s.RoutesMetaPaths, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// GetSite returns the registry row for a host.
func (r Repo) GetSite(ctx context.Context, host string) (domain.Site, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	row := r.DB.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE host=?`, host)
	return scanSite(row.Scan)
}

// ListSites returns all registered sites ordered by host.
func (r Repo) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY host`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sites []domain.Site
	for rows.Next() {
		s, err := scanSite(rows.Scan)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// UpsertSite inserts or updates a registry row.
func (r Repo) UpsertSite(ctx context.Context, s domain.Site) error {
	if strings.TrimSpace(s.Host) == "" {
		return errors.New("host required")
	}
	if strings.TrimSpace(s.Language) == "" {
		return errors.New("language required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sites(host, language, supports_user_talk, supports_native_diff, main_namespace_native, routes_meta_paths, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(host) DO UPDATE SET
			language=excluded.language,
			supports_user_talk=excluded.supports_user_talk,
			supports_native_diff=excluded.supports_native_diff,
			main_namespace_native=excluded.main_namespace_native,
			routes_meta_paths=excluded.routes_meta_paths,
			updated_at=excluded.updated_at`,
		strings.ToLower(s.Host), s.Language, s.SupportsUserTalk, s.SupportsNativeDiff, s.MainNamespaceNative, s.RoutesMetaPaths, now, now)
	return err
}

// DeleteSite removes a registry row.
func (r Repo) DeleteSite(ctx context.Context, host string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("host required")
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sites WHERE host=?`, strings.ToLower(host))
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestClassifications returns the newest log entries, optionally filtered
// by destination kind and host.
func (r Repo) LatestClassifications(ctx context.Context, limit int, kind, host string) ([]domain.Classification, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, ts, url, COALESCE(host,''), kind, payload_json FROM classifications`
	var (
		conds []string
		args  []any
	)
	if kind != "" {
		conds = append(conds, "kind=?")
		args = append(args, kind)
	}
	if host != "" {
		conds = append(conds, "host=?")
		args = append(args, strings.ToLower(host))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Classification
	for rows.Next() {
		var c domain.Classification
		if err := rows.Scan(&c.ID, &c.TS, &c.URL, &c.Host, &c.Kind, &c.PayloadJSON); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CountClassificationsByKind returns log entry counts keyed by kind.
func (r Repo) CountClassificationsByKind(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind, COUNT(*) FROM classifications GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
