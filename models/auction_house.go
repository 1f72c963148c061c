package models

import (
	"gorm.io/gorm"
)

// AuctionHouse 代表市集中的拍賣行
type AuctionHouse struct {
	gorm.Model

	ID            int64  `gorm:"primaryKey;<-:create"`
	Name          string `gorm:"type:varchar(50);not null"`
	Description   string `gorm:"type:text"`
	FollowedCount int64  `gorm:"not null;default:0"`
}
