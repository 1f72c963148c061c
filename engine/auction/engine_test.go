package auction

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"artmego/engine"
	"artmego/engine/ledger"
	"artmego/models"
)

func setupStore(t *testing.T) (*ledger.Store, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "artmego.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Buyer{}, &models.Artist{}, &models.Artwork{},
		&models.Auction{}, &models.Bid{},
	))
	return ledger.NewStore(db, ledger.WithRetries(20)), db
}

func seedAuction(t *testing.T, db *gorm.DB, auctionID, minimumBid, increment int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Create(&models.Artist{ID: 1, Nickname: "青山"}).Error)
	require.NoError(t, db.Create(&models.Artwork{ID: 1, ArtistID: 1, Name: "夜之森"}).Error)
	require.NoError(t, db.Create(&models.Auction{
		ID:           auctionID,
		ArtworkID:    1,
		MinimumBid:   minimumBid,
		BidIncrement: increment,
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
	}).Error)
}

func currentBidAmount(t *testing.T, db *gorm.DB, auctionID int64) int64 {
	t.Helper()
	var au models.Auction
	require.NoError(t, db.Preload("CurrentBid").First(&au, "id = ?", auctionID).Error)
	if au.CurrentBid == nil {
		return 0
	}
	return au.CurrentBid.Amount
}

func TestPlaceBid(t *testing.T) {
	ctx := context.Background()
	store, db := setupStore(t)
	seedAuction(t, db, 1, 800, 100)
	require.NoError(t, db.Create(&models.Buyer{ID: 10, Nickname: "小明", Cash: 100000}).Error)
	require.NoError(t, db.Create(&models.Buyer{ID: 11, Nickname: "小華", Cash: 100000}).Error)
	e := NewEngine(store)

	// 依序重演一場拍賣的前幾手，每一步都驗證指標與資料列的狀態
	tests := []struct {
		name         string
		buyerID      int64
		amount       int64
		wantKind     engine.Kind
		wantCurrent  int64
		wantPrevious int64
	}{
		{
			name:        "低於起標價的出價應被拒絕",
			buyerID:     10,
			amount:      700,
			wantKind:    engine.KindBidTooLow,
			wantCurrent: 0,
		},
		{
			name:        "不是加價幅度整數倍的出價應被拒絕",
			buyerID:     10,
			amount:      850,
			wantKind:    engine.KindInvalidBidIncrement,
			wantCurrent: 0,
		},
		{
			name:         "合法的首次出價應成為目前最高出價",
			buyerID:      10,
			amount:       900,
			wantCurrent:  900,
			wantPrevious: 0,
		},
		{
			name:        "與目前最高出價同額的出價應被拒絕",
			buyerID:     11,
			amount:      900,
			wantKind:    engine.KindBidTooLow,
			wantCurrent: 900,
		},
		{
			name:         "更高的合法出價應推進指標",
			buyerID:      11,
			amount:       1100,
			wantCurrent:  1100,
			wantPrevious: 900,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := e.PlaceBid(ctx, tt.buyerID, 1, tt.amount)
			if tt.wantKind != "" {
				assert.True(t, engine.IsKind(err, tt.wantKind), "unexpected error %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.amount, receipt.Amount)
				assert.Equal(t, tt.wantPrevious, receipt.Previous)
				assert.NotZero(t, receipt.BidID)
			}
			assert.Equal(t, tt.wantCurrent, currentBidAmount(t, db, 1))
		})
	}

	// 兩次成功，留下兩筆不可變的出價紀錄
	var count int64
	require.NoError(t, db.Model(&models.Bid{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestPlaceBidFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("拍賣不存在時應回報NotFound", func(t *testing.T) {
		store, db := setupStore(t)
		require.NoError(t, db.Create(&models.Buyer{ID: 10, Cash: 100000}).Error)
		_, err := NewEngine(store).PlaceBid(ctx, 10, 404, 900)
		assert.True(t, engine.IsKind(err, engine.KindNotFound))
	})

	t.Run("買家不存在時應回報UnknownBuyer", func(t *testing.T) {
		store, db := setupStore(t)
		seedAuction(t, db, 1, 800, 100)
		_, err := NewEngine(store).PlaceBid(ctx, 999, 1, 900)
		assert.True(t, engine.IsKind(err, engine.KindUnknownBuyer))
	})

	t.Run("尚未開始的拍賣應回報AuctionNotOpen", func(t *testing.T) {
		store, db := setupStore(t)
		now := time.Now()
		require.NoError(t, db.Create(&models.Auction{
			ID: 2, ArtworkID: 1, MinimumBid: 800, BidIncrement: 100,
			StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		}).Error)
		require.NoError(t, db.Create(&models.Buyer{ID: 10, Cash: 100000}).Error)
		_, err := NewEngine(store).PlaceBid(ctx, 10, 2, 900)
		assert.True(t, engine.IsKind(err, engine.KindAuctionNotOpen))
	})

	t.Run("已結束的拍賣應回報AuctionNotOpen", func(t *testing.T) {
		store, db := setupStore(t)
		now := time.Now()
		require.NoError(t, db.Create(&models.Auction{
			ID: 3, ArtworkID: 1, MinimumBid: 800, BidIncrement: 100,
			StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
		}).Error)
		require.NoError(t, db.Create(&models.Buyer{ID: 10, Cash: 100000}).Error)
		_, err := NewEngine(store).PlaceBid(ctx, 10, 3, 900)
		assert.True(t, engine.IsKind(err, engine.KindAuctionNotOpen))
	})

	t.Run("現金不足時應回報InsufficientFunds且不留任何痕跡", func(t *testing.T) {
		store, db := setupStore(t)
		seedAuction(t, db, 1, 800, 100)
		require.NoError(t, db.Create(&models.Buyer{ID: 10, Cash: 500}).Error)
		_, err := NewEngine(store).PlaceBid(ctx, 10, 1, 900)
		assert.True(t, engine.IsKind(err, engine.KindInsufficientFunds))

		var buyer models.Buyer
		require.NoError(t, db.First(&buyer, "id = ?", 10).Error)
		assert.Equal(t, int64(500), buyer.Cash)
		var count int64
		require.NoError(t, db.Model(&models.Bid{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Zero(t, currentBidAmount(t, db, 1))
	})
}

func TestPlaceBidDoesNotDebit(t *testing.T) {
	ctx := context.Background()
	store, db := setupStore(t)
	seedAuction(t, db, 1, 800, 100)
	require.NoError(t, db.Create(&models.Buyer{ID: 10, Cash: 3000, Points: 7}).Error)

	_, err := NewEngine(store).PlaceBid(ctx, 10, 1, 900)
	require.NoError(t, err)

	// 出價只確認資金，不託管也不扣款
	var buyer models.Buyer
	require.NoError(t, db.First(&buyer, "id = ?", 10).Error)
	assert.Equal(t, int64(3000), buyer.Cash)
	assert.Equal(t, int64(7), buyer.Points)
}

func TestPlaceBidConcurrent(t *testing.T) {
	ctx := context.Background()
	store, db := setupStore(t)
	seedAuction(t, db, 1, 800, 100)
	e := NewEngine(store)

	amounts := []int64{900, 1000, 1100, 1200, 1300, 1400, 1500, 1600}
	for i := range amounts {
		require.NoError(t, db.Create(&models.Buyer{ID: int64(100 + i), Cash: 100000}).Error)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	succeeded := []int64{}
	for i, amount := range amounts {
		wg.Add(1)
		go func(buyerID, amount int64) {
			defer wg.Done()
			receipt, err := e.PlaceBid(ctx, buyerID, 1, amount)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded = append(succeeded, receipt.Amount)
			case engine.IsKind(err, engine.KindBidTooLow):
			case engine.IsKind(err, engine.KindTransient):
			default:
				t.Errorf("unexpected error for bid %d: %v", amount, err)
			}
		}(int64(100+i), amount)
	}
	wg.Wait()

	require.NotEmpty(t, succeeded)
	var highest int64
	for _, amount := range succeeded {
		if amount > highest {
			highest = amount
		}
	}
	// 指標永遠落在成功出價中的最高金額上，出價紀錄一筆不多一筆不少
	assert.Equal(t, highest, currentBidAmount(t, db, 1))
	var count int64
	require.NoError(t, db.Model(&models.Bid{}).Count(&count).Error)
	assert.Equal(t, int64(len(succeeded)), count)
}
