package models

import (
	"time"
)

// 藝評投票的種類
const (
	VoteLike    = "L"
	VoteDislike = "D"
	VoteNone    = "N"
)

// CritiqueVote 代表買家對藝評的投票
// 以 (artwork_id, critic_id, buyer_id) 為複合主鍵，首次投票時建立，之後只會改變種類
type CritiqueVote struct {
	ArtworkID int64  `gorm:"primaryKey;autoIncrement:false;<-:create"`
	CriticID  int64  `gorm:"primaryKey;autoIncrement:false;<-:create"`
	BuyerID   int64  `gorm:"primaryKey;autoIncrement:false;<-:create"`
	Type      string `gorm:"type:varchar(1);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
