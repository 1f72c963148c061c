package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"artmego/engine"
	"artmego/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "artmego.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Buyer{}))
	return db
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("衝突時應重跑整個工作單元", func(t *testing.T) {
		store := NewStore(setupDB(t), WithRetries(3))
		attempts := 0
		err := store.Transaction(ctx, func(tx *gorm.DB) error {
			attempts++
			if attempts < 3 {
				return ErrConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("重試額度用盡時應回報Transient", func(t *testing.T) {
		store := NewStore(setupDB(t), WithRetries(2))
		attempts := 0
		err := store.Transaction(ctx, func(tx *gorm.DB) error {
			attempts++
			return ErrConflict
		})
		assert.True(t, engine.IsKind(err, engine.KindTransient))
		assert.Equal(t, 3, attempts)
	})

	t.Run("類型化的失敗應原封不動傳回且不重試", func(t *testing.T) {
		store := NewStore(setupDB(t), WithRetries(3))
		attempts := 0
		fault := engine.Failf(engine.KindInsufficientFunds, "not enough")
		err := store.Transaction(ctx, func(tx *gorm.DB) error {
			attempts++
			return fault
		})
		assert.ErrorIs(t, err, fault)
		assert.Equal(t, 1, attempts)
	})

	t.Run("不可重試的錯誤應包裝後傳回", func(t *testing.T) {
		store := NewStore(setupDB(t), WithRetries(3))
		boom := errors.New("boom")
		err := store.Transaction(ctx, func(tx *gorm.DB) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, engine.Kind(""), engine.KindOf(err))
	})

	t.Run("失敗的工作單元不應留下任何寫入", func(t *testing.T) {
		db := setupDB(t)
		store := NewStore(db)
		err := store.Transaction(ctx, func(tx *gorm.DB) error {
			if result := tx.Create(&models.Buyer{ID: 1, Cash: 100}); result.Error != nil {
				return result.Error
			}
			return engine.Failf(engine.KindInvalidArgument, "abort")
		})
		assert.True(t, engine.IsKind(err, engine.KindInvalidArgument))
		var count int64
		require.NoError(t, db.Model(&models.Buyer{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestBuyer(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	require.NoError(t, db.Create(&models.Buyer{ID: 7, Cash: 500, Points: 20}).Error)

	t.Run("應取得存在的買家", func(t *testing.T) {
		buyer, err := store.Buyer(db, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(500), buyer.Cash)
		assert.Equal(t, int64(20), buyer.Points)
	})

	t.Run("買家不存在時應回報UnknownBuyer", func(t *testing.T) {
		_, err := store.Buyer(db, 999)
		assert.True(t, engine.IsKind(err, engine.KindUnknownBuyer))
	})
}

func TestAdjustBalances(t *testing.T) {
	tests := []struct {
		name        string
		cashDelta   int64
		pointsDelta int64
		wantErr     error
		wantCash    int64
		wantPoints  int64
	}{
		{
			name:        "應同時調整現金與點數",
			cashDelta:   -300,
			pointsDelta: 40,
			wantCash:    700,
			wantPoints:  90,
		},
		{
			name:        "現金不足以扣款時應回報衝突且不動餘額",
			cashDelta:   -1001,
			pointsDelta: 0,
			wantErr:     ErrConflict,
			wantCash:    1000,
			wantPoints:  50,
		},
		{
			name:        "點數不足以扣款時應回報衝突且不動餘額",
			cashDelta:   0,
			pointsDelta: -51,
			wantErr:     ErrConflict,
			wantCash:    1000,
			wantPoints:  50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupDB(t)
			store := NewStore(db)
			require.NoError(t, db.Create(&models.Buyer{ID: 1, Cash: 1000, Points: 50}).Error)

			err := store.AdjustBalances(db, 1, tt.cashDelta, tt.pointsDelta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			var buyer models.Buyer
			require.NoError(t, db.First(&buyer, "id = ?", 1).Error)
			assert.Equal(t, tt.wantCash, buyer.Cash)
			assert.Equal(t, tt.wantPoints, buyer.Points)
		})
	}
}
