package models

import (
	"time"
)

// CritiqueStatusApproved 表示藝評已通過審核，才能被購買或投票
const CritiqueStatusApproved = "APPROVED"

// Critique 代表藝評人對藝術品的評論
// 以 (artwork_id, critic_id) 為複合主鍵
// upvote_count / downvote_count 必須與 critique_votes 的實際筆數保持一致
type Critique struct {
	ArtworkID     int64  `gorm:"primaryKey;autoIncrement:false;<-:create"`
	CriticID      int64  `gorm:"primaryKey;autoIncrement:false;<-:create"`
	Text          string `gorm:"type:text;not null"`
	PointPrice    int64  `gorm:"not null"`
	UpvoteCount   int64  `gorm:"not null;default:0"`
	DownvoteCount int64  `gorm:"not null;default:0"`
	Status        string `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
