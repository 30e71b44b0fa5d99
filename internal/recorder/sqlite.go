package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"OptionSentinel/internal/model"
)

// SQLiteRecorder persists signal history to a SQLite database.
type SQLiteRecorder struct {
	db    *sql.DB
	mu    sync.Mutex
	limit int
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
// A non-positive limit uses DefaultHistoryLimit.
func NewSQLiteRecorder(dbPath string, limit int) (*SQLiteRecorder, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the CLI read history while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, limit: limit}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s (limit %d)", dbPath, limit)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id       TEXT,
			timestamp      INTEGER NOT NULL,
			ticker         TEXT NOT NULL,
			price          REAL,
			call_score     INTEGER,
			put_score      INTEGER,
			iv_level       TEXT,
			unusual_volume INTEGER,
			earnings_soon  INTEGER,
			factors        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ticker ON signals(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Append(cycleID string, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO signals
		(cycle_id, timestamp, ticker, price, call_score, put_score,
		 iv_level, unusual_volume, earnings_soon, factors)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range signals {
		factors, err := json.Marshal(s.Factors)
		if err != nil {
			return fmt.Errorf("encode factors for %s: %w", s.Ticker, err)
		}
		if _, err := stmt.Exec(cycleID, s.Timestamp.UnixMilli(), s.Ticker, s.Price,
			s.CallScore, s.PutScore, string(s.IVLevel),
			boolToInt(s.UnusualVolume), boolToInt(s.EarningsSoon), string(factors)); err != nil {
			return fmt.Errorf("insert %s: %w", s.Ticker, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM signals WHERE id NOT IN
		(SELECT id FROM signals ORDER BY timestamp DESC, id DESC LIMIT ?)`, r.limit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

const selectSignals = `SELECT timestamp, ticker, price, call_score, put_score,
	iv_level, unusual_volume, earnings_soon, factors FROM signals`

func (r *SQLiteRecorder) LoadAll() ([]model.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query(selectSignals + ` ORDER BY timestamp DESC, id DESC`)
}

func (r *SQLiteRecorder) LoadTicker(ticker string, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = r.limit
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query(selectSignals+` WHERE ticker = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToUpper(ticker), limit)
}

func (r *SQLiteRecorder) query(q string, args ...any) ([]model.Signal, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var (
			s                 model.Signal
			ts                int64
			iv, factors       string
			unusual, earnings int
		)
		if err := rows.Scan(&ts, &s.Ticker, &s.Price, &s.CallScore, &s.PutScore,
			&iv, &unusual, &earnings, &factors); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Timestamp = time.UnixMilli(ts).UTC()
		s.IVLevel = model.IVLevel(iv)
		s.UnusualVolume = unusual != 0
		s.EarningsSoon = earnings != 0
		if factors != "" && factors != "null" {
			if err := json.Unmarshal([]byte(factors), &s.Factors); err != nil {
				log.Printf("[WARN] recorder: bad factors for %s: %v", s.Ticker, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Averages(ticker string) (Averages, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := Averages{Ticker: strings.ToUpper(ticker)}
	var call, put sql.NullFloat64
	err := r.db.QueryRow(`SELECT AVG(call_score), AVG(put_score), COUNT(*)
		FROM signals WHERE ticker = ?`, a.Ticker).Scan(&call, &put, &a.Count)
	if err != nil {
		return a, fmt.Errorf("averages for %s: %w", a.Ticker, err)
	}
	a.Call, a.Put = call.Float64, put.Float64
	return a, nil
}

func (r *SQLiteRecorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.Exec(`DELETE FROM signals`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	log.Println("[INFO] signal history cleared")
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
