// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/quotebot/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rounds (
            id SERIAL PRIMARY KEY,
            round_id VARCHAR(255) UNIQUE NOT NULL,
            character_name VARCHAR(255) NOT NULL,
            line TEXT NOT NULL,
            ep_code VARCHAR(50) NOT NULL DEFAULT '',
            ep_name VARCHAR(255) NOT NULL DEFAULT '',
            answered BOOLEAN NOT NULL DEFAULT FALSE,
            answered_by VARCHAR(255) NOT NULL DEFAULT '',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS scores (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(255) UNIQUE NOT NULL,
            display_name VARCHAR(255) NOT NULL,
            score INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_rounds_round_id ON rounds(round_id);
        CREATE INDEX IF NOT EXISTS idx_scores_user_id ON scores(user_id);
    `)

	return err
}

// --- RoundStore ---

func (p *PostgreSQL) Create(roundID string, record models.QuoteRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO rounds (round_id, character_name, line, ep_code, ep_name)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (round_id) DO NOTHING
    `

	result, err := p.db.ExecContext(ctx, query, roundID,
		record.Character, record.Line, record.EpisodeCode, record.EpisodeName)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicateRound
	}
	return nil
}

func (p *PostgreSQL) Get(roundID string) (models.Round, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var round models.Round
	query := `
        SELECT character_name, line, ep_code, ep_name, answered, answered_by
        FROM rounds WHERE round_id = $1
    `
	err := p.db.QueryRowContext(ctx, query, roundID).Scan(
		&round.Character, &round.Line, &round.EpisodeCode, &round.EpisodeName,
		&round.Answered, &round.AnsweredBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Round{}, false, nil
		}
		return models.Round{}, false, err
	}
	return round, true, nil
}

func (p *PostgreSQL) Resolve(roundID string, resolvedBy string) (models.QuoteRecord, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 条件更新保证两个并发 Resolve 只有一个成功
	var record models.QuoteRecord
	query := `
        UPDATE rounds SET answered = TRUE, answered_by = $2, updated_at = CURRENT_TIMESTAMP
        WHERE round_id = $1 AND answered = FALSE
        RETURNING character_name, line, ep_code, ep_name
    `
	err := p.db.QueryRowContext(ctx, query, roundID, resolvedBy).Scan(
		&record.Character, &record.Line, &record.EpisodeCode, &record.EpisodeName)
	if err == nil {
		return record, false, nil
	}
	if err != sql.ErrNoRows {
		return models.QuoteRecord{}, false, err
	}

	// 没有行被改写：回合不存在或已经解决
	round, found, err := p.Get(roundID)
	if err != nil {
		return models.QuoteRecord{}, false, err
	}
	if !found {
		return models.QuoteRecord{}, false, ErrRoundNotFound
	}
	return round.QuoteRecord, true, nil
}

func (p *PostgreSQL) CountOpen() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var open int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rounds WHERE answered = FALSE`).Scan(&open)
	return open, err
}

// --- ScoreStore ---

func (p *PostgreSQL) Adjust(userID, displayName string, delta int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO scores (user_id, display_name, score)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id)
        DO UPDATE SET display_name = $2, score = scores.score + $3, updated_at = CURRENT_TIMESTAMP
        RETURNING score
    `

	var newScore int
	err := p.db.QueryRowContext(ctx, query, userID, displayName, delta).Scan(&newScore)
	return newScore, err
}

func (p *PostgreSQL) ReadAll() ([]models.ScoreEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `SELECT user_id, display_name, score FROM scores`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ScoreEntry
	for rows.Next() {
		var entry models.ScoreEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.Score); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrNoScores
	}
	return entries, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
