package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wikiroute/internal/domain"
)

// Writer appends classification outcomes to the audit log.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, rawURL, host string, d domain.Destination) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal destination: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO classifications(id,ts,url,host,kind,payload_json) VALUES (?,?,?,?,?,?)`,
		uuid.NewString(), ts, rawURL, nullable(host), string(d.Kind), string(payload))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
