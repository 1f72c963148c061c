package models

import (
	"gorm.io/gorm"
)

// Artist 代表市集中的藝術家
type Artist struct {
	gorm.Model

	ID            int64  `gorm:"primaryKey;<-:create"`
	Nickname      string `gorm:"type:varchar(50);not null"`
	Description   string `gorm:"type:text"`
	FollowedCount int64  `gorm:"not null;default:0"`

	// 外鍵關聯
	Artworks []Artwork `gorm:"foreignKey:ArtistID"`
}
