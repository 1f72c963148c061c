package models

import (
	"time"

	"gorm.io/gorm"
)

// Auction 代表一件藝術品的限時拍賣
// current_bid_id 永遠指向此拍賣中金額最高的出價（相同金額以先提交者優先），
// 只能透過 compare-and-swap 條件更新來推進
type Auction struct {
	gorm.Model

	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ArtworkID    int64     `gorm:"not null;index;<-:create"`
	MinimumBid   int64     `gorm:"not null"`
	BidIncrement int64     `gorm:"not null"`
	CurrentBidID *int64    `gorm:"type:bigint"`
	StartTime    time.Time `gorm:"not null"`
	EndTime      time.Time `gorm:"not null"`

	// 外鍵關聯
	Artwork    *Artwork `gorm:"foreignKey:ArtworkID"`
	CurrentBid *Bid     `gorm:"foreignKey:CurrentBidID"`
	BidRecords []Bid    `gorm:"foreignKey:AuctionID"`
}

// Open 回報 t 是否落在拍賣的開放區間內
func (a Auction) Open(t time.Time) bool {
	return !t.Before(a.StartTime) && !t.After(a.EndTime)
}
