// Package auction 實作競標引擎。
// 出價只檢查買家現金而不扣款（確認資金，而非託管），
// 唯一會被異動的是不可變的出價紀錄與拍賣上的 current_bid 指標。
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"artmego/engine"
	"artmego/engine/ledger"
	"artmego/models"
)

// Engine 對帳本執行出價操作
type Engine struct {
	store *ledger.Store
}

// NewEngine 建立一個新的競標引擎
func NewEngine(store *ledger.Store) *Engine {
	return &Engine{store: store}
}

// Receipt 是成功出價的結果
// Previous 是出價前的最高金額；行動端目前沒有使用它，
// 保留是為了與既有呼叫端相容
type Receipt struct {
	BidID    int64
	Amount   int64
	Previous int64
}

// PlaceBid 在單一交易中驗證並提交一筆出價：
//   - 拍賣必須存在且現在時間落在開放區間內
//   - 買家必須存在，且現金餘額足以支付出價（只檢查，不扣款）
//   - 金額必須嚴格高於目前最高出價、不低於起標價，並且是加價幅度的整數倍
//
// 成功時寫入一筆不可變的出價紀錄，並以 compare-and-swap 把 current_bid
// 指標從本交易讀到的值推進到新紀錄；CAS 未命中代表有其他買家先完成提交，
// 整個工作單元會重跑並針對「實際的」最高出價重新驗證
func (e *Engine) PlaceBid(ctx context.Context, buyerID, auctionID, amount int64) (Receipt, error) {
	const op = "auction.Engine.PlaceBid"

	var receipt Receipt
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		// 取得拍賣與目前最高出價
		var au models.Auction
		if result := tx.Preload("CurrentBid").First(&au, "id = ?", auctionID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return engine.Failf(engine.KindNotFound, "auction %d does not exist", auctionID)
			}
			return fmt.Errorf("[%s] Fail to find auction, err=%w", op, result.Error)
		}
		if !au.Open(time.Now()) {
			return engine.Failf(engine.KindAuctionNotOpen, "auction %d is not open", auctionID)
		}
		buyer, err := e.store.Buyer(tx, buyerID)
		if err != nil {
			return err
		}
		// 驗證出價金額
		var current int64
		if au.CurrentBid != nil {
			current = au.CurrentBid.Amount
		}
		if amount <= current {
			return engine.Failf(engine.KindBidTooLow, "bid %d is not higher than current bid %d", amount, current)
		}
		if amount < au.MinimumBid {
			return engine.Failf(engine.KindBidTooLow, "bid %d is lower than minimum bid %d", amount, au.MinimumBid)
		}
		if au.BidIncrement <= 0 || amount%au.BidIncrement != 0 {
			return engine.Failf(engine.KindInvalidBidIncrement, "bid %d is not a multiple of increment %d", amount, au.BidIncrement)
		}
		if buyer.Cash < amount {
			return engine.Failf(engine.KindInsufficientFunds, "buyer cash %d is lower than bid %d", buyer.Cash, amount)
		}
		// 寫入出價紀錄
		bid := models.Bid{
			AuctionID: au.ID,
			BuyerID:   buyerID,
			Amount:    amount,
		}
		if result := tx.Create(&bid); result.Error != nil {
			return fmt.Errorf("[%s] Fail to create bid, err=%w", op, result.Error)
		}
		// CAS 推進 current_bid 指標，未命中表示最高出價已被其他交易更新
		query := tx.Model(&models.Auction{}).Where("id = ?", au.ID)
		if au.CurrentBidID == nil {
			query = query.Where("current_bid_id IS NULL")
		} else {
			query = query.Where("current_bid_id = ?", *au.CurrentBidID)
		}
		result := query.Update("current_bid_id", bid.ID)
		if result.Error != nil {
			return fmt.Errorf("[%s] Fail to advance current bid, err=%w", op, result.Error)
		}
		if result.RowsAffected == 0 {
			return ledger.ErrConflict
		}
		receipt = Receipt{
			BidID:    bid.ID,
			Amount:   amount,
			Previous: current,
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	slog.Info("Higher bid occurs", slog.Int64("buyer", buyerID), slog.Int64("auction", auctionID), slog.Int64("bid", amount))
	return receipt, nil
}
