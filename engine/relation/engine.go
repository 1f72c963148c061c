// Package relation 實作追蹤／收藏引擎。
// 五種追蹤對象共用同一條狀態機與同一份實作，差別只在計數欄位掛在哪張表；
// 邊的狀態與目標上的計數永遠在同一筆交易內一起提交，避免計數悄悄腐化
package relation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"artmego/engine"
	"artmego/engine/ledger"
	"artmego/models"
)

// Engine 對帳本執行追蹤／收藏／投票操作
type Engine struct {
	store *ledger.Store
}

// NewEngine 建立一個新的追蹤引擎
func NewEngine(store *ledger.Store) *Engine {
	return &Engine{store: store}
}

// targetModel 把追蹤種類對應到掛著 followed_count 的資料表模型。
// 這是五種對象唯一的分歧點，其餘流程完全共用
func targetModel(kind models.TargetKind) (any, error) {
	switch kind {
	case models.KindArtwork:
		return &models.Artwork{}, nil
	case models.KindArtist:
		return &models.Artist{}, nil
	case models.KindGallery:
		return &models.Gallery{}, nil
	case models.KindAuctionHouse:
		return &models.AuctionHouse{}, nil
	case models.KindCritic:
		return &models.Critic{}, nil
	default:
		return nil, engine.Failf(engine.KindInvalidArgument, "unrecognized target kind %q", kind)
	}
}

// ToggleFollow 在單一交易中切換買家對目標的追蹤狀態，回傳更新後的追蹤計數。
// 每對 (buyer, target) 的狀態機為 NONE / FOLLOWING / UNFOLLOWING：
//   - 無邊時的追蹤會建立一條 FOLLOWING 邊並把計數 +1
//   - FOLLOWING ↔ UNFOLLOWING 的切換把計數 ±1
//   - 要求切換到已在的狀態是嚴格的 no-op：不動邊，也不動計數
func (e *Engine) ToggleFollow(ctx context.Context, buyerID int64, kind models.TargetKind, targetID int64, follow bool) (int64, error) {
	const op = "relation.Engine.ToggleFollow"

	var counter int64
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := e.store.Buyer(tx, buyerID); err != nil {
			return err
		}
		model, err := targetModel(kind)
		if err != nil {
			return err
		}
		// 確認追蹤對象存在並讀取目前計數
		var probe struct{ FollowedCount int64 }
		if result := tx.Model(model).Select("followed_count").Where("id = ?", targetID).Take(&probe); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return engine.Failf(engine.KindNotFound, "%s %d does not exist", kind, targetID)
			}
			return fmt.Errorf("[%s] Fail to find follow target, err=%w", op, result.Error)
		}

		desired, delta := models.FollowStatusUnfollowing, int64(-1)
		if follow {
			desired, delta = models.FollowStatusFollowing, 1
		}

		var edge models.FollowEdge
		result := tx.First(&edge, "buyer_id = ? AND target_kind = ? AND target_id = ?", buyerID, kind, targetID)
		switch {
		case result.Error == nil:
			if edge.Status == desired {
				counter = probe.FollowedCount
				return nil
			}
			if result := tx.Model(&models.FollowEdge{}).
				Where("buyer_id = ? AND target_kind = ? AND target_id = ?", buyerID, kind, targetID).
				Update("status", desired); result.Error != nil {
				return fmt.Errorf("[%s] Fail to update follow edge, err=%w", op, result.Error)
			}
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			// 從未追蹤過的對象無從取消追蹤
			if !follow {
				counter = probe.FollowedCount
				return nil
			}
			edge = models.FollowEdge{
				BuyerID:    buyerID,
				TargetKind: kind,
				TargetID:   targetID,
				Status:     desired,
			}
			if result := tx.Create(&edge); result.Error != nil {
				// 重複鍵代表另一筆交易同時建立了這條邊，重跑後會走切換路徑
				if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
					return ledger.ErrConflict
				}
				return fmt.Errorf("[%s] Fail to create follow edge, err=%w", op, result.Error)
			}
		default:
			return fmt.Errorf("[%s] Fail to find follow edge, err=%w", op, result.Error)
		}
		// 與邊同一筆交易內以原子運算式更新計數
		if result := tx.Model(model).Where("id = ?", targetID).
			UpdateColumn("followed_count", gorm.Expr("followed_count + ?", delta)); result.Error != nil {
			return fmt.Errorf("[%s] Fail to update followed count, err=%w", op, result.Error)
		}
		counter = probe.FollowedCount + delta
		return nil
	})
	if err != nil {
		return 0, err
	}
	return counter, nil
}

// AddFavoriteArtwork 在單一交易中設定藝術品的收藏位。
// 設為收藏但尚未追蹤時，會先套用一次 FOLLOWING 轉換（含計數 +1），
// 再設定收藏位；收藏位本身永遠不影響追蹤計數
func (e *Engine) AddFavoriteArtwork(ctx context.Context, buyerID, artworkID int64, isFavorite bool) error {
	const op = "relation.Engine.AddFavoriteArtwork"

	return e.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := e.store.Buyer(tx, buyerID); err != nil {
			return err
		}
		var probe struct{ FollowedCount int64 }
		if result := tx.Model(&models.Artwork{}).Select("followed_count").Where("id = ?", artworkID).Take(&probe); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return engine.Failf(engine.KindNotFound, "artwork %d does not exist", artworkID)
			}
			return fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error)
		}

		var edge models.FollowEdge
		result := tx.First(&edge, "buyer_id = ? AND target_kind = ? AND target_id = ?", buyerID, models.KindArtwork, artworkID)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			// 沒有邊時取消收藏沒有任何效果
			if !isFavorite {
				return nil
			}
			edge = models.FollowEdge{
				BuyerID:    buyerID,
				TargetKind: models.KindArtwork,
				TargetID:   artworkID,
				Status:     models.FollowStatusFollowing,
				IsFavorite: true,
			}
			if result := tx.Create(&edge); result.Error != nil {
				if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
					return ledger.ErrConflict
				}
				return fmt.Errorf("[%s] Fail to create follow edge, err=%w", op, result.Error)
			}
			if result := tx.Model(&models.Artwork{}).Where("id = ?", artworkID).
				UpdateColumn("followed_count", gorm.Expr("followed_count + 1")); result.Error != nil {
				return fmt.Errorf("[%s] Fail to update followed count, err=%w", op, result.Error)
			}
			return nil
		}
		if result.Error != nil {
			return fmt.Errorf("[%s] Fail to find follow edge, err=%w", op, result.Error)
		}

		updates := map[string]any{}
		if isFavorite && !edge.Following() {
			updates["status"] = models.FollowStatusFollowing
		}
		if edge.IsFavorite != isFavorite {
			updates["is_favorite"] = isFavorite
		}
		if len(updates) == 0 {
			return nil
		}
		if result := tx.Model(&models.FollowEdge{}).
			Where("buyer_id = ? AND target_kind = ? AND target_id = ?", buyerID, models.KindArtwork, artworkID).
			Updates(updates); result.Error != nil {
			return fmt.Errorf("[%s] Fail to update follow edge, err=%w", op, result.Error)
		}
		if _, ok := updates["status"]; ok {
			if result := tx.Model(&models.Artwork{}).Where("id = ?", artworkID).
				UpdateColumn("followed_count", gorm.Expr("followed_count + 1")); result.Error != nil {
				return fmt.Errorf("[%s] Fail to update followed count, err=%w", op, result.Error)
			}
		}
		return nil
	})
}
