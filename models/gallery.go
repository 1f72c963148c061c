package models

import (
	"gorm.io/gorm"
)

// Gallery 代表市集中的藝廊
type Gallery struct {
	gorm.Model

	ID            int64  `gorm:"primaryKey;<-:create"`
	Name          string `gorm:"type:varchar(50);not null"`
	Description   string `gorm:"type:text"`
	FollowedCount int64  `gorm:"not null;default:0"`
}
