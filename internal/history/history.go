// Package history persists a bounded trail of dispatcher-observed callback
// events to a sqlite database for post-mortem inspection through the
// control plane. The WCM core's own operating state lives entirely in
// RAM; this store never feeds back into FSM decisions, it only ever
// accumulates and is read back through Recent. The control plane's status
// route does not read it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// CurrentSchemaVersion tracks the transitions table's shape.
const CurrentSchemaVersion = 1

// Schema creates the two tables this package owns: transitions and
// system_state.
const Schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	reason   TEXT NOT NULL,
	mac      TEXT DEFAULT '',
	ps_mode  TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS system_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a bounded, append-only log of CallbackEvent occurrences. The
// retention cap keeps it from growing without limit over a long-running
// daemon's lifetime.
type Store struct {
	db  *sql.DB
	cap int
	log zerolog.Logger
}

// Open opens or creates the history database at dbPath ("" or ":memory:"
// for an ephemeral in-process store) and ensures its schema exists.
// Retention is the maximum number of transitions rows Record keeps.
func Open(dbPath string, retention int, log zerolog.Logger) (*Store, error) {
	if retention <= 0 {
		retention = 500
	}
	dsn := ":memory:"
	if dbPath != "" && dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("history: create directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}

	return &Store{db: db, cap: retention, log: log.With().Str("component", "history").Logger()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entry is one recorded transition, as read back by Recent.
type Entry struct {
	Time   time.Time
	Reason wcmtypes.EventReason
	MAC    string
	PSMode string
}

// Record inserts ev and trims the table back to the retention cap.
// wcm.Manager.dispatchCallback calls this on every FSM callback; a write failure is logged, not
// returned, since a broken history log must never affect WCM operation.
func (s *Store) Record(ctx context.Context, ev wcmtypes.CallbackEvent) {
	mac := ""
	if ev.MAC != [6]byte{} {
		mac = macString(ev.MAC)
	}
	psMode := ""
	switch ev.Reason {
	case wcmtypes.ReasonPsEnter, wcmtypes.ReasonPsExit:
		psMode = ev.PSMode.String()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (reason, mac, ps_mode) VALUES (?, ?, ?)`,
		ev.Reason.String(), mac, psMode); err != nil {
		s.log.Warn().Err(err).Msg("failed to record transition")
		return
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM transitions WHERE id NOT IN (SELECT id FROM transitions ORDER BY id DESC LIMIT ?)`,
		s.cap); err != nil {
		s.log.Warn().Err(err).Msg("failed to trim transitions")
	}
}

// Recent returns up to limit most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, reason, mac, ps_mode FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		var reason string
		if err := rows.Scan(&ts, &reason, &e.MAC, &e.PSMode); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Time, _ = time.Parse("2006-01-02 15:04:05", ts)
		e.Reason = reasonFromString(reason)
		out = append(out, e)
	}
	return out, rows.Err()
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func reasonFromString(s string) wcmtypes.EventReason {
	for r := wcmtypes.ReasonSuccess; r <= wcmtypes.ReasonInitializationFailed; r++ {
		if r.String() == s {
			return r
		}
	}
	return wcmtypes.ReasonSuccess
}
