// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormRound 回合模型
type GormRound struct {
	gorm.Model
	RoundID     string `gorm:"uniqueIndex;not null"`
	Character   string `gorm:"not null"`
	Line        string `gorm:"not null"`
	EpisodeCode string
	EpisodeName string
	Answered    bool   `gorm:"default:false"`
	AnsweredBy  string `gorm:"default:''"`
}

// GormScore 积分模型
type GormScore struct {
	gorm.Model
	UserID      string `gorm:"uniqueIndex;not null"`
	DisplayName string `gorm:"not null"`
	Score       int    `gorm:"default:0"`
}
