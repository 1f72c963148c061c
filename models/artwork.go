package models

import (
	"gorm.io/gorm"
)

// Artwork 代表市集中的藝術品
// followed_count 與 critique_count 為反正規化的計數欄位，
// 必須與 follow_edges / critiques 的實際筆數保持一致
type Artwork struct {
	gorm.Model

	ID            int64  `gorm:"primaryKey;autoIncrement"`
	ArtistID      int64  `gorm:"index;<-:create"`
	Name          string `gorm:"type:varchar(50);not null"`
	Description   string `gorm:"type:text"`
	Status        string `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	FollowedCount int64  `gorm:"not null;default:0"`
	CritiqueCount int64  `gorm:"not null;default:0"`

	// 外鍵關聯
	Artist    *Artist    `gorm:"foreignKey:ArtistID"`
	Critiques []Critique `gorm:"foreignKey:ArtworkID"`
}
