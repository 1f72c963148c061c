// Package engine 定義交易核心各引擎共用的操作結果類型。
// 每個操作要嘛成功，要嘛回傳一個封閉集合中的 Fault，不會有被吞掉的錯誤，
// 也不會有部分提交的狀態。
package engine

import (
	"errors"
	"fmt"
)

// Kind 標記操作失敗的種類，API Gateway 依種類對應到穩定的回應碼
type Kind string

const (
	// KindNotFound 拍賣、藝評或追蹤對象不存在
	KindNotFound Kind = "NOT_FOUND"
	// KindUnknownBuyer 買家帳戶不存在
	KindUnknownBuyer Kind = "UNKNOWN_BUYER"
	// KindAuctionNotOpen 出價時間落在拍賣開放區間之外
	KindAuctionNotOpen Kind = "AUCTION_NOT_OPEN"
	// KindBidTooLow 出價未高於目前最高出價，或低於起標價
	KindBidTooLow Kind = "BID_TOO_LOW"
	// KindInvalidBidIncrement 出價不是加價幅度的整數倍
	KindInvalidBidIncrement Kind = "INVALID_BID_INCREMENT"
	// KindInvalidArgument 不認識的點數方案、追蹤種類或投票種類
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindInsufficientFunds 現金或點數不足
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	// KindTransient 樂觀併發的重試額度用盡，呼叫端可自行重試
	KindTransient Kind = "TRANSIENT"
)

// Fault 是操作回傳給呼叫端的類型化失敗
type Fault struct {
	Kind Kind
	Msg  string
}

func (f *Fault) Error() string {
	if f.Msg == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

// Failf 建立一個指定種類的 Fault
func Failf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind 回報 err 是否為指定種類的 Fault
func IsKind(err error, kind Kind) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.Kind == kind
}

// KindOf 取出 err 的 Fault 種類，非 Fault 時回傳空字串
func KindOf(err error) Kind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return ""
}
