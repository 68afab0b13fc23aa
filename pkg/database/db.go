package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"team-matcher/internal/constants"
	"team-matcher/internal/models"
	"team-matcher/pkg/config"
	errs "team-matcher/pkg/errors"
)

// DB is the MySQL store for the fixture catalogue and the match log.
type DB struct {
	conn         *sql.DB
	stmts        map[string]*sql.Stmt
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// schema is applied by EnsureSchema. Times are stored in UTC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS fixtures (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        home_team VARCHAR(255) NOT NULL,
        away_team VARCHAR(255) NOT NULL,
        league VARCHAR(255) NULL,
        starts_at DATETIME NOT NULL,
        KEY idx_fixtures_starts_at (starts_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS fixture_matches (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        source VARCHAR(64) NOT NULL,
        external_id VARCHAR(128) NOT NULL,
        fixture_id BIGINT NULL,
        status VARCHAR(16) NOT NULL,
        score SMALLINT NOT NULL,
        home_score SMALLINT NOT NULL,
        away_score SMALLINT NOT NULL,
        swapped TINYINT(1) NOT NULL DEFAULT 0,
        reason VARCHAR(255) NOT NULL DEFAULT '',
        matched_at DATETIME(6) NOT NULL,
        KEY idx_fixture_matches_matched_at (matched_at),
        KEY idx_fixture_matches_external (source, external_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// statements are prepared once per connection pool.
var statements = map[string]string{
	"fixturesBetween": `SELECT id, home_team, away_team, league, starts_at
                        FROM fixtures WHERE starts_at >= ? AND starts_at < ?
                        ORDER BY starts_at, id`,
	"fixtureByID":   `SELECT id, home_team, away_team, league, starts_at FROM fixtures WHERE id = ?`,
	"insertFixture": `INSERT INTO fixtures (home_team, away_team, league, starts_at) VALUES (?, ?, ?, ?)`,
	"insertMatch": `INSERT INTO fixture_matches
                    (source, external_id, fixture_id, status, score, home_score, away_score, swapped, reason, matched_at)
                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	"recentMatches": `SELECT id, source, external_id, fixture_id, status, score, home_score, away_score, swapped, reason, matched_at
                      FROM fixture_matches ORDER BY matched_at DESC, id DESC LIMIT ?`,
}

// normalizeDSN makes the driver hand back time.Time values in UTC.
func normalizeDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errs.NewValidation("database.normalizeDSN", "invalid MySQL DSN", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

// New opens a pool with default settings.
func New(databaseURL string) (*DB, error) {
	return open(context.Background(), databaseURL, poolSettings{
		maxOpen: 25, maxIdle: 10, lifetime: 10 * time.Minute, idle: 5 * time.Minute,
		readTimeout: constants.DBReadTimeoutDefault, writeTimeout: constants.DBWriteTimeoutDefault,
	})
}

// NewWithConfig creates a database connection with pool and timeout settings from cfg.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*DB, error) {
	s := poolSettings{
		maxOpen:      cfg.DBMaxOpenConns,
		maxIdle:      cfg.DBMaxIdleConns,
		lifetime:     time.Duration(cfg.DBConnMaxLifetime) * time.Minute,
		idle:         time.Duration(cfg.DBConnMaxIdleTime) * time.Minute,
		readTimeout:  cfg.DBReadTimeout,
		writeTimeout: cfg.DBWriteTimeout,
	}
	if s.readTimeout == 0 {
		s.readTimeout = constants.DBReadTimeoutDefault
	}
	if s.writeTimeout == 0 {
		s.writeTimeout = constants.DBWriteTimeoutDefault
	}
	return open(ctx, cfg.DatabaseURL, s)
}

type poolSettings struct {
	maxOpen, maxIdle          int
	lifetime, idle            time.Duration
	readTimeout, writeTimeout time.Duration
}

func open(ctx context.Context, databaseURL string, s poolSettings) (*DB, error) {
	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.NewDB("database.open", "failed to open pool", err)
	}
	conn.SetMaxOpenConns(s.maxOpen)
	conn.SetMaxIdleConns(s.maxIdle)
	conn.SetConnMaxLifetime(s.lifetime)
	conn.SetConnMaxIdleTime(s.idle)

	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  s.readTimeout,
		writeTimeout: s.writeTimeout,
	}
	if err := db.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the fixtures and fixture_matches tables if missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()
	for _, ddl := range schema {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return errs.NewDB("database.EnsureSchema", "failed to apply schema", err)
		}
	}
	return nil
}

func (db *DB) prepareStatements(ctx context.Context) error {
	for name, query := range statements {
		stmt, err := db.conn.PrepareContext(ctx, query)
		if err != nil {
			return errs.NewDB("database.prepareStatements", fmt.Sprintf("failed to prepare statement %s", name), err)
		}
		db.stmts[name] = stmt
	}
	return nil
}

// Close closes prepared statements and the pool.
func (db *DB) Close() error {
	for _, stmt := range db.stmts {
		stmt.Close()
	}
	return db.conn.Close()
}

// Conn exposes the pool for integration tests.
func (db *DB) Conn() *sql.DB { return db.conn }

// PingContext checks connectivity under the read timeout.
func (db *DB) PingContext(ctx context.Context) error {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return errs.NewDB("database.Ping", "database unreachable", err)
	}
	return nil
}

// withReadTimeout creates a context with standard read timeout.
func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

// withWriteTimeout creates a context with standard write timeout.
func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}

// DayBounds returns [start, end) of day's calendar date in day's own location,
// converted to UTC for comparison with stored times.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFixture(row rowScanner) (*models.Fixture, error) {
	var f models.Fixture
	var league sql.NullString
	if err := row.Scan(&f.ID, &f.HomeTeam, &f.AwayTeam, &league, &f.StartsAt); err != nil {
		return nil, err
	}
	if league.Valid {
		f.League = &league.String
	}
	return &f, nil
}

// FixturesOn returns the fixtures starting on day's calendar date, read in day's location.
func (db *DB) FixturesOn(ctx context.Context, day time.Time) ([]models.Fixture, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	from, to := DayBounds(day)
	rows, err := db.stmts["fixturesBetween"].QueryContext(ctx, from, to)
	if err != nil {
		return nil, errs.NewDB("database.FixturesOn", "failed to query fixtures", err)
	}
	defer rows.Close()

	var out []models.Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, errs.NewDB("database.FixturesOn", "failed to scan fixture row", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("database.FixturesOn", "row iteration error", err)
	}
	return out, nil
}

// FixtureByID returns one fixture. A missing id is a not-found error, not a DB failure.
func (db *DB) FixtureByID(ctx context.Context, id int64) (*models.Fixture, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	f, err := scanFixture(db.stmts["fixtureByID"].QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("database.FixtureByID", fmt.Sprintf("fixture %d not found", id), err)
	}
	if err != nil {
		return nil, errs.NewDB("database.FixtureByID", "failed to load fixture", err)
	}
	return f, nil
}

// InsertFixture validates and stores f, setting its ID.
func (db *DB) InsertFixture(ctx context.Context, f *models.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	res, err := db.stmts["insertFixture"].ExecContext(ctx, f.HomeTeam, f.AwayTeam, f.League, f.StartsAt.UTC())
	if err != nil {
		return errs.NewDB("database.InsertFixture", "failed to insert fixture", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewDB("database.InsertFixture", "failed to read fixture id", err)
	}
	f.ID = id
	return nil
}

// RecordMatch appends rec to the match log and sets its ID.
func (db *DB) RecordMatch(ctx context.Context, rec *models.MatchRecord) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	res, err := db.stmts["insertMatch"].ExecContext(ctx,
		rec.Source, rec.ExternalID, rec.FixtureID, string(rec.Status),
		rec.Score, rec.HomeScore, rec.AwayScore, rec.Swapped, rec.Reason, rec.MatchedAt.UTC())
	if err != nil {
		return errs.NewDB("database.RecordMatch", "failed to insert match record", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// RecentMatches returns the newest match log rows, newest first.
func (db *DB) RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = constants.RecentMatchesDefaultLimit
	}
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.stmts["recentMatches"].QueryContext(ctx, limit)
	if err != nil {
		return nil, errs.NewDB("database.RecentMatches", "failed to query match log", err)
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		var r models.MatchRecord
		var fixtureID sql.NullInt64
		var status string
		if err := rows.Scan(&r.ID, &r.Source, &r.ExternalID, &fixtureID, &status,
			&r.Score, &r.HomeScore, &r.AwayScore, &r.Swapped, &r.Reason, &r.MatchedAt); err != nil {
			return nil, errs.NewDB("database.RecentMatches", "failed to scan match row", err)
		}
		if fixtureID.Valid {
			r.FixtureID = &fixtureID.Int64
		}
		r.Status = models.MatchStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("database.RecentMatches", "row iteration error", err)
	}
	return out, nil
}
