package models

import (
	"gorm.io/gorm"
)

// Bid 代表拍賣中的出價紀錄
// 建立後不可變動，也永遠不會被刪除
type Bid struct {
	*gorm.Model

	ID        int64 `gorm:"primaryKey;autoIncrement"`
	AuctionID int64 `gorm:"not null;index;<-:create"`
	BuyerID   int64 `gorm:"not null;<-:create"`
	Amount    int64 `gorm:"not null;<-:create"`

	// 外鍵關聯
	Buyer   *Buyer   `gorm:"foreignKey:BuyerID"`
	Auction *Auction `gorm:"foreignKey:AuctionID"`
}
