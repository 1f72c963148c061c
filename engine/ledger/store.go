// Package ledger 提供交易核心唯一的共享資源：買家帳本。
// 所有會異動帳本的操作都必須透過 Store.Transaction 取得交易邊界，
// 不允許在交易之外修改任何餘額或計數。
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"artmego/engine"
	"artmego/models"
)

// ErrConflict 表示條件式更新沒有命中任何資料列，
// 代表有其他交易先一步改動了同一筆資料，整個工作單元需要重跑
var ErrConflict = errors.New("conflicting concurrent update")

// Store 包裝資料庫連線，提供帶重試的交易邊界與買家帳本操作
type Store struct {
	db      *gorm.DB
	options StoreOptions
}

// StoreOptions 定義 Store 的配置選項
type StoreOptions struct {
	// Retries 是衝突後的最大重試次數，用盡後以 KindTransient 回報呼叫端
	Retries int
	Logger  *slog.Logger
}

type StoreOption func(*StoreOptions)

// WithRetries 設定衝突重試次數
func WithRetries(n int) StoreOption {
	return func(o *StoreOptions) {
		o.Retries = n
	}
}

// WithLogger 設定 Store 使用的 logger
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *StoreOptions) {
		o.Logger = logger
	}
}

// NewStore 建立一個新的 Store 實例
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	options := StoreOptions{
		Retries: 3,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{
		db:      db,
		options: options,
	}
}

// DB 回傳底層連線，僅供唯讀查詢使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 以 serializable 隔離等級執行 fn，整個工作單元全有或全無。
// fn 回傳 Fault 時立即放棄並原封不動傳給呼叫端；
// 遇到序列化失敗、死鎖或 ErrConflict 時重跑整個 fn，額度用盡改以 KindTransient 回報。
// ctx 取消會中止進行中的交易，不留任何部分效果。
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	const op = "ledger.Store.Transaction"

	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil {
			return nil
		}
		var fault *engine.Fault
		if errors.As(err, &fault) {
			return err
		}
		if !retryable(err) {
			return fmt.Errorf("[%s] Fail to run transaction, err=%w", op, err)
		}
		if attempt >= s.options.Retries {
			s.options.Logger.Warn("Retry budget exhausted", slog.String("op", op), slog.Int("attempts", attempt+1), slog.Any("error", err))
			return engine.Failf(engine.KindTransient, "gave up after %d attempts", attempt+1)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("[%s] Transaction aborted, err=%w", op, ctx.Err())
		}
		s.options.Logger.Debug("Retrying conflicting transaction", slog.String("op", op), slog.Int("attempt", attempt+1))
	}
}

// Buyer 取得買家帳戶，帳戶不存在時回傳 KindUnknownBuyer
func (s *Store) Buyer(tx *gorm.DB, buyerID int64) (models.Buyer, error) {
	const op = "ledger.Store.Buyer"
	var buyer models.Buyer
	if result := tx.First(&buyer, "id = ?", buyerID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.Buyer{}, engine.Failf(engine.KindUnknownBuyer, "buyer %d does not exist", buyerID)
		}
		return models.Buyer{}, fmt.Errorf("[%s] Fail to find buyer, err=%w", op, result.Error)
	}
	return buyer, nil
}

// AdjustBalances 以單一條件式 UPDATE 調整買家的現金與點數。
// WHERE 子句同時守住兩個餘額的非負不變量；呼叫端必須先在同一筆交易中
// 驗證過餘額足夠，所以命中零列只可能是併發改動，回傳 ErrConflict 觸發重跑
func (s *Store) AdjustBalances(tx *gorm.DB, buyerID, cashDelta, pointsDelta int64) error {
	const op = "ledger.Store.AdjustBalances"
	result := tx.Model(&models.Buyer{}).
		Where("id = ? AND cash + ? >= 0 AND points + ? >= 0", buyerID, cashDelta, pointsDelta).
		Updates(map[string]any{
			"cash":   gorm.Expr("cash + ?", cashDelta),
			"points": gorm.Expr("points + ?", pointsDelta),
		})
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to adjust balances, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// retryable 判斷錯誤是否值得重跑整個工作單元：
// CAS 未命中、postgres 的序列化失敗/死鎖、以及 sqlite 的鎖競爭
func retryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
