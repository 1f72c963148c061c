package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	redisAdapter "artmego/adapters/redis"
	"artmego/engine"
	"artmego/engine/auction"
	"artmego/engine/ledger"
	"artmego/engine/purchase"
	"artmego/engine/relation"
	"artmego/models"
)

// ServerImpl 是行動端 API 的閘道，負責把已驗證的買家識別碼
// 與已解碼的參數交給各引擎，並把類型化的失敗對應到穩定的回應碼。
// 引擎本身不知道任何 HTTP 狀態碼
type ServerImpl struct {
	auctionEngine  *auction.Engine
	purchaseEngine *purchase.Engine
	relationEngine *relation.Engine
	bidFeed        redisAdapter.IBidFeed
	redisClient    *goredis.Client
	db             *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化帳本與各引擎
	store := ledger.NewStore(db, ledger.WithRetries(config.Ledger.Retries))
	bidFeed, err := redisAdapter.NewBidFeed(redisClient, config.Redis.StreamKeys.Bids)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create bid feed, err=%w", op, err)
	}

	return &ServerImpl{
		auctionEngine:  auction.NewEngine(store),
		purchaseEngine: purchase.NewEngine(store),
		relationEngine: relation.NewEngine(store),
		bidFeed:        bidFeed,
		redisClient:    redisClient,
		db:             db,
		config:         config,
	}, nil
}

func (impl *ServerImpl) Close() {
	if err := impl.redisClient.Close(); err != nil {
		slog.Warn("Fail to close redis client", slog.Any("error", err))
	}
}

// RegisterRoutes 掛上行動端 API 的路由
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	router.Use(RequestTracing())
	router.POST("/make_bid", impl.MakeBid)
	router.POST("/buy_coins", impl.BuyCoins)
	router.POST("/buy_critique", impl.BuyCritique)
	router.POST("/follow_artwork", impl.FollowSomething(models.KindArtwork))
	router.POST("/follow_artist", impl.FollowSomething(models.KindArtist))
	router.POST("/follow_gallery", impl.FollowSomething(models.KindGallery))
	router.POST("/follow_auction_house", impl.FollowSomething(models.KindAuctionHouse))
	router.POST("/follow_critic", impl.FollowSomething(models.KindCritic))
	router.POST("/add_favorite_artwork", impl.AddFavoriteArtwork)
	router.POST("/like_dislike_critique", impl.LikeDislikeCritique)
}

// buyerID 從請求中解出已驗證的買家識別碼
func (impl *ServerImpl) buyerID(c *gin.Context) (int64, bool) {
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if tokenString == "" {
		tokenString, _ = c.Cookie("access_token")
	}
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return 0, false
	}
	token, err := ParseAndValidateJWT(tokenString, impl.config.Auth.PublicKey)
	if err != nil {
		slog.Error("Fail to parse and validate JWT", slog.Any("error", err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return 0, false
	}
	buyerID, err := token.BuyerID()
	if err != nil {
		slog.Error("Fail to resolve buyer id", slog.Any("error", err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return 0, false
	}
	return buyerID, true
}

// respondFault 把引擎回報的失敗對應到穩定的回應碼
func respondFault(c *gin.Context, err error) {
	status, ok := faultStatus[engine.KindOf(err)]
	if !ok {
		slog.Error("Operation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": lo.ToPtr("internal error")})
		return
	}
	c.JSON(status, gin.H{
		"error":   engine.KindOf(err),
		"message": err.Error(),
	})
}

var faultStatus = map[engine.Kind]int{
	engine.KindNotFound:            http.StatusNotFound,
	engine.KindUnknownBuyer:        http.StatusNotFound,
	engine.KindAuctionNotOpen:      http.StatusGone,
	engine.KindBidTooLow:           http.StatusConflict,
	engine.KindInvalidBidIncrement: http.StatusUnprocessableEntity,
	engine.KindInvalidArgument:     http.StatusBadRequest,
	engine.KindInsufficientFunds:   http.StatusPaymentRequired,
	engine.KindTransient:           http.StatusServiceUnavailable,
}

// Place a bid on an artwork auction
// (POST /make_bid)
func (impl *ServerImpl) MakeBid(c *gin.Context) {
	const op = "MakeBid"
	buyerID, ok := impl.buyerID(c)
	if !ok {
		return
	}
	var request struct {
		AuctionID int64 `json:"artwork_auction_id" binding:"required"`
		BidAmount int64 `json:"bid_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
		return
	}

	// 取得Redis上這場拍賣的出價鎖，讓跨實例的同拍賣出價先在這裡排隊
	lockKey := fmt.Sprintf("%sauction:%d:lock", impl.config.Redis.KeyPrefix, request.AuctionID)
	dMutex := redisAdapter.NewEntityMutex(impl.redisClient, lockKey)
	lockCtx, err := dMutex.Lock(c.Request.Context())
	if err != nil {
		slog.Error("Fail to acquire bid lock", slog.String("op", op), slog.Any("error", err))
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			slog.Warn("Fail to release bid lock", slog.String("op", op), slog.Any("error", err))
		}
	}()

	receipt, err := impl.auctionEngine.PlaceBid(lockCtx, buyerID, request.AuctionID, request.BidAmount)
	if err != nil {
		respondFault(c, err)
		return
	}
	// 把成功的出價發佈給即時拍賣畫面，發佈失敗不影響已提交的出價
	event := redisAdapter.BidEvent{
		AuctionID: request.AuctionID,
		BuyerID:   buyerID,
		Amount:    receipt.Amount,
		PlacedAt:  time.Now(),
	}
	if err := impl.bidFeed.Publish(context.WithoutCancel(lockCtx), event); err != nil {
		slog.Warn("Fail to publish bid event", slog.String("op", op), slog.Any("error", err))
	}
	c.JSON(http.StatusOK, gin.H{
		"current_bid":  receipt.Amount,
		"previous_bid": receipt.Previous,
	})
}

// Buy points with cash
// (POST /buy_coins)
func (impl *ServerImpl) BuyCoins(c *gin.Context) {
	buyerID, ok := impl.buyerID(c)
	if !ok {
		return
	}
	var request struct {
		CoinAmount int64 `json:"coin_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
		return
	}
	receipt, err := impl.purchaseEngine.BuyCoins(c.Request.Context(), buyerID, request.CoinAmount)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coins":  receipt.Coins,
		"cash":   receipt.Cash,
		"points": receipt.Points,
	})
}

// Buy a critique with points
// (POST /buy_critique)
func (impl *ServerImpl) BuyCritique(c *gin.Context) {
	buyerID, ok := impl.buyerID(c)
	if !ok {
		return
	}
	var request struct {
		ArtworkID int64 `json:"artwork_id" binding:"required"`
		CriticID  int64 `json:"critic_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
		return
	}
	receipt, err := impl.purchaseEngine.PurchaseCritique(c.Request.Context(), buyerID, request.ArtworkID, request.CriticID)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points":            receipt.Points,
		"already_purchased": receipt.AlreadyPurchased,
	})
}

// Follow or unfollow a target entity
// (POST /follow_{artwork,artist,gallery,auction_house,critic})
func (impl *ServerImpl) FollowSomething(kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, ok := impl.buyerID(c)
		if !ok {
			return
		}
		var request struct {
			TargetID int64 `json:"id" binding:"required"`
			Follow   *bool `json:"follow" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
			return
		}
		counter, err := impl.relationEngine.ToggleFollow(c.Request.Context(), buyerID, kind, request.TargetID, *request.Follow)
		if err != nil {
			respondFault(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"followed_count": counter})
	}
}

// Mark or unmark an artwork as favorite
// (POST /add_favorite_artwork)
func (impl *ServerImpl) AddFavoriteArtwork(c *gin.Context) {
	buyerID, ok := impl.buyerID(c)
	if !ok {
		return
	}
	var request struct {
		ArtworkID  int64 `json:"artwork_id" binding:"required"`
		IsFavorite *bool `json:"is_favorite" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
		return
	}
	if err := impl.relationEngine.AddFavoriteArtwork(c.Request.Context(), buyerID, request.ArtworkID, *request.IsFavorite); err != nil {
		respondFault(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Vote on a critique
// (POST /like_dislike_critique)
func (impl *ServerImpl) LikeDislikeCritique(c *gin.Context) {
	buyerID, ok := impl.buyerID(c)
	if !ok {
		return
	}
	var request struct {
		ArtworkID int64  `json:"artwork_id" binding:"required"`
		CriticID  int64  `json:"critic_id" binding:"required"`
		VoteType  string `json:"vote_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": lo.ToPtr(err.Error())})
		return
	}
	receipt, err := impl.relationEngine.VoteCritique(c.Request.Context(), buyerID, request.ArtworkID, request.CriticID, request.VoteType)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upvote_count":   receipt.UpvoteCount,
		"downvote_count": receipt.DownvoteCount,
	})
}
