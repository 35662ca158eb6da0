// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/quotebot/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
//
// Implements both RoundStore and ScoreStore; atomicity comes from
// per-statement row locks and transactions rather than a process-wide
// mutex, so multiple bot instances could share one database.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRound{}, &models.GormScore{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// --- RoundStore ---

func (p *GormPostgreSQL) Create(roundID string, record models.QuoteRecord) error {
	round := models.GormRound{
		RoundID:     roundID,
		Character:   record.Character,
		Line:        record.Line,
		EpisodeCode: record.EpisodeCode,
		EpisodeName: record.EpisodeName,
	}

	err := p.db.Create(&round).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRound
	}
	return err
}

func (p *GormPostgreSQL) Get(roundID string) (models.Round, bool, error) {
	var round models.GormRound
	if err := p.db.Where("round_id = ?", roundID).First(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Round{}, false, nil
		}
		return models.Round{}, false, err
	}
	return toRound(round), true, nil
}

func (p *GormPostgreSQL) Resolve(roundID string, resolvedBy string) (models.QuoteRecord, bool, error) {
	var record models.QuoteRecord
	var alreadyResolved bool

	err := p.db.Transaction(func(tx *gorm.DB) error {
		// 条件更新：answered=false 的行才会被改写，因此两个并发
		// Resolve 只有一个能看到 RowsAffected > 0
		result := tx.Model(&models.GormRound{}).
			Where("round_id = ? AND answered = ?", roundID, false).
			Updates(map[string]interface{}{
				"answered":    true,
				"answered_by": resolvedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		alreadyResolved = result.RowsAffected == 0

		var round models.GormRound
		if err := tx.Where("round_id = ?", roundID).First(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoundNotFound
			}
			return err
		}
		record = toRound(round).QuoteRecord
		return nil
	})
	if err != nil {
		return models.QuoteRecord{}, false, err
	}
	return record, alreadyResolved, nil
}

func (p *GormPostgreSQL) CountOpen() (int, error) {
	var open int64
	err := p.db.Model(&models.GormRound{}).
		Where("answered = ?", false).
		Count(&open).Error
	return int(open), err
}

// --- ScoreStore ---

func (p *GormPostgreSQL) Adjust(userID, displayName string, delta int) (int, error) {
	entry := models.GormScore{
		UserID:      userID,
		DisplayName: displayName,
		Score:       delta,
	}

	// UPSERT 而不是先读后写:两个并发的首次 Adjust 都能落库,
	// 冲突时在数据库侧累加
	err := p.db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"display_name": displayName,
				"score":        gorm.Expr("gorm_scores.score + ?", delta),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "score"}}},
	).Create(&entry).Error
	if err != nil {
		return 0, err
	}
	return entry.Score, nil
}

func (p *GormPostgreSQL) ReadAll() ([]models.ScoreEntry, error) {
	var rows []models.GormScore
	if err := p.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoScores
	}

	entries := make([]models.ScoreEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.ScoreEntry{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Score:       row.Score,
		})
	}
	return entries, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRound(row models.GormRound) models.Round {
	return models.Round{
		QuoteRecord: models.QuoteRecord{
			Character:   row.Character,
			Line:        row.Line,
			EpisodeCode: row.EpisodeCode,
			EpisodeName: row.EpisodeName,
		},
		Answered:   row.Answered,
		AnsweredBy: row.AnsweredBy,
	}
}
