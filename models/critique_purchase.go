package models

import (
	"time"
)

// CritiquePurchase 代表買家購買藝評的永久紀錄
// 以 (artwork_id, critic_id, buyer_id) 為複合主鍵，
// 紀錄存在即代表「已付費」，重複購買不再扣款
type CritiquePurchase struct {
	ArtworkID int64 `gorm:"primaryKey;autoIncrement:false;<-:create"`
	CriticID  int64 `gorm:"primaryKey;autoIncrement:false;<-:create"`
	BuyerID   int64 `gorm:"primaryKey;autoIncrement:false;<-:create"`
	CreatedAt time.Time
}
