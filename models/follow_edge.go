package models

import (
	"time"
)

// TargetKind 標記可被追蹤的對象種類
type TargetKind string

const (
	KindArtwork      TargetKind = "ARTWORK"
	KindArtist       TargetKind = "ARTIST"
	KindGallery      TargetKind = "GALLERY"
	KindAuctionHouse TargetKind = "AUCTION_HOUSE"
	KindCritic       TargetKind = "CRITIC"
)

// 追蹤關係的狀態
const (
	FollowStatusFollowing   = "FOLLOWING"
	FollowStatusUnfollowing = "UNFOLLOWING"
)

// FollowEdge 代表買家對某個對象的追蹤關係
// 以 (buyer_id, target_kind, target_id) 為複合主鍵，首次追蹤時建立，
// 之後只會在 FOLLOWING / UNFOLLOWING 之間切換，永遠不會被刪除
// is_favorite 僅對 ARTWORK 有意義，且與追蹤狀態、計數彼此獨立
type FollowEdge struct {
	BuyerID    int64      `gorm:"primaryKey;autoIncrement:false;<-:create"`
	TargetKind TargetKind `gorm:"type:varchar(20);primaryKey;<-:create"`
	TargetID   int64      `gorm:"primaryKey;autoIncrement:false;<-:create"`
	Status     string     `gorm:"type:varchar(20);not null"`
	IsFavorite bool       `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Following 回報這條邊目前是否處於追蹤中
func (e FollowEdge) Following() bool {
	return e.Status == FollowStatusFollowing
}
