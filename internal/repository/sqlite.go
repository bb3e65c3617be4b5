package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mbeaufort/pitchrally/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an existing database handle (used by driver-level tests)
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			active BOOLEAN DEFAULT 1,
			external_ref_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id TEXT NOT NULL,
			fact_type TEXT NOT NULL,
			value REAL NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			season TEXT NOT NULL DEFAULT '',
			verified BOOLEAN DEFAULT 0,
			source TEXT,
			FOREIGN KEY (entity_id) REFERENCES entities(id),
			UNIQUE(entity_id, fact_type, scope, season)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			difficulty TEXT,
			predicate TEXT NOT NULL,
			example_answer TEXT,
			season TEXT,
			active BOOLEAN DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player1_id TEXT NOT NULL,
			player2_id TEXT,
			status TEXT NOT NULL DEFAULT 'waiting',
			games_won_p1 INTEGER DEFAULT 0,
			games_won_p2 INTEGER DEFAULT 0,
			current_rally_id TEXT,
			winner_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS rallies (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			current_turn_id TEXT NOT NULL,
			p1_points INTEGER DEFAULT 0,
			p2_points INTEGER DEFAULT 0,
			deuce BOOLEAN DEFAULT 0,
			answers TEXT NOT NULL DEFAULT '[]',
			winner_id TEXT,
			completed_at DATETIME,
			FOREIGN KEY (match_id) REFERENCES matches(id)
		)`,
		`CREATE TABLE IF NOT EXISTS answer_submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rally_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			answer TEXT NOT NULL,
			valid BOOLEAN NOT NULL,
			reason TEXT,
			entity_id TEXT,
			method TEXT,
			time_taken_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (rally_id) REFERENCES rallies(id)
		)`,
		`CREATE TABLE IF NOT EXISTS player_stats (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			elo INTEGER DEFAULT 1200,
			matches_played INTEGER DEFAULT 0,
			matches_won INTEGER DEFAULT 0,
			current_streak INTEGER DEFAULT 0,
			best_streak INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_entity ON facts(entity_id, fact_type)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_rallies_match ON rallies(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_rally ON answer_submissions(rally_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// ==================== Entity Methods ====================

// ListActiveEntities returns active entities, optionally filtered by type
func (r *Repository) ListActiveEntities(ctx context.Context, entityType models.EntityType) ([]models.Entity, error) {
	query := `SELECT id, name, type, active, COALESCE(external_ref_id, '') FROM entities WHERE active = 1`
	args := []interface{}{}
	if entityType != "" {
		query += ` AND type = ?`
		args = append(args, string(entityType))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Active, &e.ExternalRefID); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// GetEntity retrieves an entity by ID
func (r *Repository) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	var e models.Entity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, active, COALESCE(external_ref_id, '') FROM entities WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Type, &e.Active, &e.ExternalRefID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntity inserts a new entity
func (r *Repository) CreateEntity(ctx context.Context, entity models.Entity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, type, active, external_ref_id) VALUES (?, ?, ?, ?, ?)`,
		entity.ID, entity.Name, string(entity.Type), entity.Active, entity.ExternalRefID)
	return err
}

// ==================== Fact Methods ====================

// FindFacts returns facts for an entity and fact type. Empty scope or
// season matches any value.
func (r *Repository) FindFacts(ctx context.Context, entityID, factType, scope, season string) ([]models.Fact, error) {
	query := `SELECT entity_id, fact_type, value, scope, season, verified, COALESCE(source, '')
		FROM facts WHERE entity_id = ? AND fact_type = ?`
	args := []interface{}{entityID, factType}
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	if season != "" {
		query += ` AND season = ?`
		args = append(args, season)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []models.Fact
	for rows.Next() {
		var f models.Fact
		if err := rows.Scan(&f.EntityID, &f.FactType, &f.Value, &f.Scope, &f.Season, &f.Verified, &f.Source); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// UpsertFacts inserts facts, overwriting existing rows that share the
// (entity_id, fact_type, scope, season) key
func (r *Repository) UpsertFacts(ctx context.Context, facts []models.Fact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (entity_id, fact_type, value, scope, season, verified, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, fact_type, scope, season)
		DO UPDATE SET value = excluded.value, verified = excluded.verified, source = excluded.source`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.EntityID, f.FactType, f.Value, f.Scope, f.Season, f.Verified, f.Source); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ==================== Category Methods ====================

func (r *Repository) scanCategory(row interface{ Scan(...interface{}) error }) (*models.Category, error) {
	var c models.Category
	var predicate string
	err := row.Scan(&c.ID, &c.Title, &c.Difficulty, &predicate, &c.ExampleAnswer, &c.Season, &c.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(predicate), &c.Predicate); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all active categories
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(difficulty, ''), predicate, COALESCE(example_answer, ''), COALESCE(season, ''), active
		FROM categories WHERE active = 1 ORDER BY difficulty`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := r.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a category by ID
func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(difficulty, ''), predicate, COALESCE(example_answer, ''), COALESCE(season, ''), active
		FROM categories WHERE id = ?`, id)
	return r.scanCategory(row)
}

// RandomCategory returns a random active category, optionally filtered by
// difficulty
func (r *Repository) RandomCategory(ctx context.Context, difficulty string) (*models.Category, error) {
	query := `SELECT id, title, COALESCE(difficulty, ''), predicate, COALESCE(example_answer, ''), COALESCE(season, ''), active
		FROM categories WHERE active = 1`
	args := []interface{}{}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, args...)
	return r.scanCategory(row)
}

// CreateCategory inserts a new category
func (r *Repository) CreateCategory(ctx context.Context, category models.Category) error {
	predicate, err := json.Marshal(category.Predicate)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, title, difficulty, predicate, example_answer, season, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.ID, category.Title, category.Difficulty, string(predicate),
		category.ExampleAnswer, category.Season, category.Active)
	return err
}

// ==================== Match Methods ====================

const matchColumns = `id, player1_id, COALESCE(player2_id, ''), status, games_won_p1, games_won_p2,
	COALESCE(current_rally_id, ''), COALESCE(winner_id, ''), created_at, completed_at`

func (r *Repository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.Status, &m.GamesWonP1, &m.GamesWonP2,
		&m.CurrentRallyID, &m.WinnerID, &m.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	return &m, nil
}

// CreateMatch inserts a new match
func (r *Repository) CreateMatch(ctx context.Context, match *models.Match) error {
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (id, player1_id, player2_id, status, games_won_p1, games_won_p2, current_rally_id, winner_id, created_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`,
		match.ID, match.Player1ID, match.Player2ID, match.Status,
		match.GamesWonP1, match.GamesWonP2, match.CurrentRallyID, match.WinnerID, match.CreatedAt)
	return err
}

// GetMatch retrieves a match by ID
func (r *Repository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	return r.scanMatch(row)
}

// UpdateMatch persists the mutable fields of a match
func (r *Repository) UpdateMatch(ctx context.Context, match *models.Match) error {
	var completedAt interface{}
	if match.CompletedAt != nil {
		completedAt = *match.CompletedAt
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE matches SET player2_id = NULLIF(?, ''), status = ?, games_won_p1 = ?, games_won_p2 = ?,
			current_rally_id = NULLIF(?, ''), winner_id = NULLIF(?, ''), completed_at = ?
		WHERE id = ?`,
		match.Player2ID, match.Status, match.GamesWonP1, match.GamesWonP2,
		match.CurrentRallyID, match.WinnerID, completedAt, match.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWaitingMatches returns open matches, newest first
func (r *Repository) ListWaitingMatches(ctx context.Context, limit int) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE status = 'waiting' ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows, r)
}

// ListCompletedMatches returns a player's finished matches, newest first
func (r *Repository) ListCompletedMatches(ctx context.Context, userID string, limit int) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = 'completed' AND (player1_id = ? OR player2_id = ?)
		ORDER BY completed_at DESC LIMIT ?`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows, r)
}

func collectMatches(rows *sql.Rows, r *Repository) ([]models.Match, error) {
	var matches []models.Match
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// ==================== Rally Methods ====================

const rallyColumns = `id, match_id, category_id, status, current_turn_id, p1_points, p2_points, deuce,
	answers, COALESCE(winner_id, ''), completed_at`

func (r *Repository) scanRally(row interface{ Scan(...interface{}) error }) (*models.Rally, error) {
	var rl models.Rally
	var answers string
	var completedAt sql.NullTime
	err := row.Scan(&rl.ID, &rl.MatchID, &rl.CategoryID, &rl.Status, &rl.CurrentTurnID,
		&rl.P1Points, &rl.P2Points, &rl.Deuce, &answers, &rl.WinnerID, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &rl.Answers); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		rl.CompletedAt = &completedAt.Time
	}
	return &rl, nil
}

// CreateRally inserts a new rally
func (r *Repository) CreateRally(ctx context.Context, rally *models.Rally) error {
	answers, err := marshalAnswers(rally.Answers)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rallies (id, match_id, category_id, status, current_turn_id, p1_points, p2_points, deuce, answers, winner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`,
		rally.ID, rally.MatchID, rally.CategoryID, rally.Status, rally.CurrentTurnID,
		int(rally.P1Points), int(rally.P2Points), rally.Deuce, answers, rally.WinnerID)
	return err
}

// GetRally retrieves a rally by ID
func (r *Repository) GetRally(ctx context.Context, id string) (*models.Rally, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rallyColumns+` FROM rallies WHERE id = ?`, id)
	return r.scanRally(row)
}

// UpdateRally persists the mutable fields of a rally
func (r *Repository) UpdateRally(ctx context.Context, rally *models.Rally) error {
	answers, err := marshalAnswers(rally.Answers)
	if err != nil {
		return err
	}
	var completedAt interface{}
	if rally.CompletedAt != nil {
		completedAt = *rally.CompletedAt
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE rallies SET status = ?, current_turn_id = ?, p1_points = ?, p2_points = ?, deuce = ?,
			answers = ?, winner_id = NULLIF(?, ''), completed_at = ?
		WHERE id = ?`,
		rally.Status, rally.CurrentTurnID, int(rally.P1Points), int(rally.P2Points), rally.Deuce,
		answers, rally.WinnerID, completedAt, rally.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRalliesForMatch returns all rallies of a match in creation order
func (r *Repository) ListRalliesForMatch(ctx context.Context, matchID string) ([]models.Rally, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+rallyColumns+` FROM rallies WHERE match_id = ? ORDER BY rowid`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rallies []models.Rally
	for rows.Next() {
		rl, err := r.scanRally(rows)
		if err != nil {
			return nil, err
		}
		rallies = append(rallies, *rl)
	}
	return rallies, rows.Err()
}

// RecordSubmission appends an answer to the audit log
func (r *Repository) RecordSubmission(ctx context.Context, rallyID string, record models.AnswerRecord, timeTakenMs int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO answer_submissions (rally_id, user_id, answer, valid, reason, entity_id, method, time_taken_ms)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		rallyID, record.PlayerID, record.AnswerText, record.Valid, record.Reason,
		record.EntityID, record.Method, timeTakenMs)
	return err
}

func marshalAnswers(answers []models.AnswerRecord) (string, error) {
	if answers == nil {
		answers = []models.AnswerRecord{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ==================== Player Stats Methods ====================

const statsColumns = `user_id, username, elo, matches_played, matches_won, current_streak, best_streak`

// UpsertPlayer creates the player row if missing (fresh 1200 rating),
// refreshes the username either way, and returns the current stats
func (r *Repository) UpsertPlayer(ctx context.Context, userID, username string) (*models.PlayerStats, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_stats (user_id, username) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET username = excluded.username`,
		userID, username)
	if err != nil {
		return nil, err
	}
	return r.GetPlayerStats(ctx, userID)
}

// GetPlayerStats retrieves a player's rating and statistics
func (r *Repository) GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	var s models.PlayerStats
	err := r.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.Username, &s.Elo, &s.MatchesPlayed, &s.MatchesWon, &s.CurrentStreak, &s.BestStreak)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdatePlayerStats persists a player's rating and statistics
func (r *Repository) UpdatePlayerStats(ctx context.Context, stats *models.PlayerStats) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE player_stats SET username = ?, elo = ?, matches_played = ?, matches_won = ?,
			current_streak = ?, best_streak = ?
		WHERE user_id = ?`,
		stats.Username, stats.Elo, stats.MatchesPlayed, stats.MatchesWon,
		stats.CurrentStreak, stats.BestStreak, stats.UserID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard returns players ordered by the given column. Allowed
// orderings are whitelisted; anything else falls back to elo.
func (r *Repository) Leaderboard(ctx context.Context, orderBy string, limit int) ([]models.PlayerStats, error) {
	column := "elo"
	switch orderBy {
	case "wins":
		column = "matches_won"
	case "streak":
		column = "current_streak"
	case "elo", "":
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+statsColumns+` FROM player_stats ORDER BY `+column+` DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStats(rows)
}

// TopStreaks returns players by streak. best=false returns only players
// currently on a streak.
func (r *Repository) TopStreaks(ctx context.Context, best bool, limit int) ([]models.PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE current_streak > 0 ORDER BY current_streak DESC LIMIT ?`
	if best {
		query = `SELECT ` + statsColumns + ` FROM player_stats ORDER BY best_streak DESC LIMIT ?`
	}

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStats(rows)
}

func collectStats(rows *sql.Rows) ([]models.PlayerStats, error) {
	var stats []models.PlayerStats
	for rows.Next() {
		var s models.PlayerStats
		if err := rows.Scan(&s.UserID, &s.Username, &s.Elo, &s.MatchesPlayed, &s.MatchesWon, &s.CurrentStreak, &s.BestStreak); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
