package redis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// BidEvent 是發佈到出價 stream 的事件，
// 供行動端的即時拍賣畫面服務在別的行程消費
type BidEvent struct {
	AuctionID int64
	BuyerID   int64
	Amount    int64
	PlacedAt  time.Time
}

// IBidFeed 定義了 BidFeed 的操作介面
type IBidFeed interface {
	Publish(ctx context.Context, event BidEvent) error
}

// BidFeed 將成功的出價寫入 Redis stream
type BidFeed struct {
	client  *redis.Client
	stream  string
	options bidFeedOptions
}

type bidFeedOptions struct {
	logger *slog.Logger
}

type BidFeedOption func(*bidFeedOptions)

// WithBidFeedLogger 設定 BidFeed 使用的 logger
func WithBidFeedLogger(logger *slog.Logger) BidFeedOption {
	return func(o *bidFeedOptions) {
		o.logger = logger
	}
}

// NewBidFeed 建立一個新的出價事件發佈器
func NewBidFeed(client *redis.Client, stream string, opts ...BidFeedOption) (*BidFeed, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}
	options := bidFeedOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &BidFeed{
		client:  client,
		stream:  stream,
		options: options,
	}, nil
}

// Publish 將事件序列化後寫入 stream
func (f *BidFeed) Publish(ctx context.Context, event BidEvent) error {
	const op = "redis.BidFeed.Publish"
	message, err := EncodeBidEvent(event)
	if err != nil {
		return fmt.Errorf("[%s] Fail to encode bid event, err=%w", op, err)
	}
	id, err := f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		Values: message,
	}).Result()
	if err != nil {
		return fmt.Errorf("[%s] Fail to publish bid event, err=%w", op, err)
	}
	f.options.logger.Debug("Bid event published", slog.String("stream", f.stream), slog.String("messageId", id))
	return nil
}

// EncodeBidEvent 將事件轉成 stream 訊息：msgpack 序列化後以 base64 放進 data 欄位
func EncodeBidEvent(event BidEvent) (map[string]any, error) {
	bytes, err := msgpack.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}
	return map[string]any{
		"data": base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// DecodeBidEvent 是 EncodeBidEvent 的反向操作，供消費端還原事件
func DecodeBidEvent(message map[string]any) (BidEvent, error) {
	var event BidEvent
	dataStr, ok := message["data"].(string)
	if !ok {
		return event, errors.New("data field not found or invalid type")
	}
	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return event, fmt.Errorf("base64 decode error: %w", err)
	}
	if err := msgpack.Unmarshal(bytes, &event); err != nil {
		return event, fmt.Errorf("msgpack unmarshal error: %w", err)
	}
	return event, nil
}
