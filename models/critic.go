package models

import (
	"gorm.io/gorm"
)

// Critic 代表市集中的藝評人
type Critic struct {
	gorm.Model

	ID            int64  `gorm:"primaryKey;<-:create"`
	Nickname      string `gorm:"type:varchar(50);not null"`
	Level         int16  `gorm:"not null;default:1"`
	FollowedCount int64  `gorm:"not null;default:0"`

	// 外鍵關聯
	Critiques []Critique `gorm:"foreignKey:CriticID"`
}
