// Package purchase 實作購買引擎：藝評購買與點數購買。
// 兩種操作都是全有或全無，任何失敗路徑都不會動到買家的餘額
package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"artmego/engine"
	"artmego/engine/ledger"
	"artmego/models"
)

// Engine 對帳本執行購買操作
type Engine struct {
	store   *ledger.Store
	options EngineOptions
}

// EngineOptions 定義購買引擎的配置選項
type EngineOptions struct {
	// CoinPrices 點數方案表，預設使用 CoinPrices
	CoinPrices map[int64]int64
}

type EngineOption func(*EngineOptions)

// WithCoinPrices 覆寫點數方案表
func WithCoinPrices(prices map[int64]int64) EngineOption {
	return func(o *EngineOptions) {
		o.CoinPrices = prices
	}
}

// NewEngine 建立一個新的購買引擎
func NewEngine(store *ledger.Store, opts ...EngineOption) *Engine {
	options := EngineOptions{
		CoinPrices: CoinPrices,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Engine{
		store:   store,
		options: options,
	}
}

// CoinReceipt 是成功購買點數的結果，帶回更新後的兩個餘額
type CoinReceipt struct {
	Coins  int64
	Price  int64
	Cash   int64
	Points int64
}

// BuyCoins 在單一交易中用現金購買點數。
// coinAmount 必須是方案表中的數量，買家現金必須足以支付對應價格；
// 成功時同時扣現金、加點數，失敗時兩個餘額保證原封不動
func (e *Engine) BuyCoins(ctx context.Context, buyerID, coinAmount int64) (CoinReceipt, error) {
	const op = "purchase.Engine.BuyCoins"

	var receipt CoinReceipt
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		buyer, err := e.store.Buyer(tx, buyerID)
		if err != nil {
			return err
		}
		price, ok := e.options.CoinPrices[coinAmount]
		if !ok {
			return engine.Failf(engine.KindInvalidArgument, "unrecognized coin amount %d", coinAmount)
		}
		if buyer.Cash < price {
			return engine.Failf(engine.KindInsufficientFunds, "buyer cash %d is lower than price %d", buyer.Cash, price)
		}
		if err := e.store.AdjustBalances(tx, buyerID, -price, coinAmount); err != nil {
			return err
		}
		receipt = CoinReceipt{
			Coins:  coinAmount,
			Price:  price,
			Cash:   buyer.Cash - price,
			Points: buyer.Points + coinAmount,
		}
		return nil
	})
	if err != nil {
		return CoinReceipt{}, err
	}
	return receipt, nil
}

// CritiqueReceipt 是藝評購買的結果
// AlreadyPurchased 表示這筆購買早已存在，本次呼叫沒有動到任何餘額
type CritiqueReceipt struct {
	ArtworkID        int64
	CriticID         int64
	PointPrice       int64
	Points           int64
	AlreadyPurchased bool
}

// PurchaseCritique 在單一交易中用點數購買一篇藝評，操作是冪等的：
// (artwork, critic, buyer) 的購買紀錄已存在時直接回報成功且不再扣款。
// 藝評不存在或未通過審核時回報 KindNotFound，點數不足時回報 KindInsufficientFunds
func (e *Engine) PurchaseCritique(ctx context.Context, buyerID, artworkID, criticID int64) (CritiqueReceipt, error) {
	const op = "purchase.Engine.PurchaseCritique"

	var receipt CritiqueReceipt
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		buyer, err := e.store.Buyer(tx, buyerID)
		if err != nil {
			return err
		}
		// 取得藝評並確認已通過審核
		var critique models.Critique
		if result := tx.First(&critique, "artwork_id = ? AND critic_id = ?", artworkID, criticID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return engine.Failf(engine.KindNotFound, "critique (%d, %d) does not exist", artworkID, criticID)
			}
			return fmt.Errorf("[%s] Fail to find critique, err=%w", op, result.Error)
		}
		if !strings.EqualFold(critique.Status, models.CritiqueStatusApproved) {
			return engine.Failf(engine.KindNotFound, "critique (%d, %d) is not approved", artworkID, criticID)
		}
		// 已購買過就直接成功，不再扣款
		var existing models.CritiquePurchase
		result := tx.First(&existing, "artwork_id = ? AND critic_id = ? AND buyer_id = ?", artworkID, criticID, buyerID)
		if result.Error == nil {
			receipt = CritiqueReceipt{
				ArtworkID:        artworkID,
				CriticID:         criticID,
				PointPrice:       critique.PointPrice,
				Points:           buyer.Points,
				AlreadyPurchased: true,
			}
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("[%s] Fail to find critique purchase, err=%w", op, result.Error)
		}
		if buyer.Points < critique.PointPrice {
			return engine.Failf(engine.KindInsufficientFunds, "buyer points %d is lower than price %d", buyer.Points, critique.PointPrice)
		}
		// 寫入購買紀錄並扣點數
		// 複合主鍵撞到重複鍵代表另一筆交易同時完成了相同的購買，視為已購買
		record := models.CritiquePurchase{
			ArtworkID: artworkID,
			CriticID:  criticID,
			BuyerID:   buyerID,
		}
		if result := tx.Create(&record); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ledger.ErrConflict
			}
			return fmt.Errorf("[%s] Fail to create critique purchase, err=%w", op, result.Error)
		}
		if err := e.store.AdjustBalances(tx, buyerID, 0, -critique.PointPrice); err != nil {
			return err
		}
		receipt = CritiqueReceipt{
			ArtworkID:  artworkID,
			CriticID:   criticID,
			PointPrice: critique.PointPrice,
			Points:     buyer.Points - critique.PointPrice,
		}
		return nil
	})
	if err != nil {
		return CritiqueReceipt{}, err
	}
	return receipt, nil
}
