package decisions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/podforge-ai/podforge/pkg/models"
)

// Log writes and queries pipeline decision records in a dedicated
// SQLite database. Every scheduling and retry action lands here so an
// operator can audit what the agents decided and why.
type Log struct {
	db            *sql.DB
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
}

// Open opens the decision database, creates the schema, and starts the
// hourly retention sweep.
func Open(dbPath string, retentionDays int) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open decision db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate decision db: %w", err)
	}

	l := &Log{
		db:            db,
		retentionDays: retentionDays,
		done:          make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS decision_log (
		id            TEXT PRIMARY KEY,
		agent         TEXT NOT NULL,
		decision_type TEXT NOT NULL,
		context       TEXT,
		outcome       TEXT NOT NULL,
		episode_id    TEXT,
		created_at    DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_decision_agent ON decision_log(agent)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_decision_created ON decision_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_decision_episode ON decision_log(episode_id)`)
	return err
}

// Record inserts a decision record, assigning an ID and timestamp when
// absent.
func (l *Log) Record(ctx context.Context, rec models.DecisionRecord) error {
	if l == nil || l.db == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var contextJSON string
	if rec.Context != nil {
		b, _ := json.Marshal(rec.Context)
		contextJSON = string(b)
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO decision_log
		(id, agent, decision_type, context, outcome, episode_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Agent, rec.Type, contextJSON, rec.Outcome, rec.EpisodeID, rec.CreatedAt,
	)
	return err
}

// Query returns decision records matching the given options, newest first.
func (l *Log) Query(ctx context.Context, opts models.DecisionQueryOpts) ([]models.DecisionRecord, error) {
	q := `SELECT id, agent, decision_type, context, outcome, episode_id, created_at
		FROM decision_log WHERE 1=1`
	var args []any

	if opts.Agent != "" {
		q += " AND agent = ?"
		args = append(args, opts.Agent)
	}
	if opts.Type != "" {
		q += " AND decision_type = ?"
		args = append(args, opts.Type)
	}
	if opts.EpisodeID != "" {
		q += " AND episode_id = ?"
		args = append(args, opts.EpisodeID)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var recs []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var contextJSON, episodeID sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.Agent, &rec.Type, &contextJSON,
			&rec.Outcome, &episodeID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		rec.EpisodeID = episodeID.String
		if contextJSON.Valid && contextJSON.String != "" {
			_ = json.Unmarshal([]byte(contextJSON.String), &rec.Context)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Stats returns aggregate counts grouped by agent and day.
func (l *Log) Stats(ctx context.Context) ([]models.DecisionStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT agent, date(created_at) as day, count(*) as cnt
		 FROM decision_log GROUP BY agent, day ORDER BY day DESC, agent`)
	if err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DecisionStat
	for rows.Next() {
		var s models.DecisionStat
		var day sql.NullString
		if err := rows.Scan(&s.Agent, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan decision stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes records older than the configured retention period.
func (l *Log) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM decision_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("decision cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Log) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Log) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
