package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"gavel/adapters/catalogapi"
	"gavel/adapters/hub"
	"gavel/auction"
	"gavel/models"
)

// ServerImpl 將拍賣引擎的操作公開為HTTP端點，
// 並透過SSE將引擎的通知串流給檢視層。
type ServerImpl struct {
	state      *auction.AppState
	hub        *hub.Hub
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化目錄服務客戶端
	client, err := catalogapi.NewClient(config.Catalog.BaseURL, config.Catalog.CDNBaseURL, config.Catalog.Timeout, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create catalog client, err=%w", op, err)
	}

	// 初始化通知中心與引擎
	notificationHub := hub.NewHub(slog.Default())
	state := auction.New(client, notificationHub, slog.Default())

	return &ServerImpl{
		state:  state,
		hub:    notificationHub,
		config: config,
	}, nil
}

// Start 在背景載入初始的商品目錄
func (impl *ServerImpl) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel

	slog.Info("Start initial catalog load")
	impl.wg.Add(1)
	go func() {
		defer impl.wg.Done()
		if err := impl.state.RefreshCatalog(ctx); err != nil {
			slog.Error("Fail to load initial catalog", slog.Any("error", err))
			return
		}
		slog.Info("Initial catalog loaded", slog.Int("lots", len(impl.state.Catalog())))
	}()
}

func (impl *ServerImpl) Close() {
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	impl.hub.Close()
}

// RegisterRoutes 註冊所有端點
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	router.GET("/lots", impl.GetLots)
	router.POST("/catalog/refresh", impl.PostCatalogRefresh)
	router.POST("/preview/:lotID", impl.PostPreview)
	router.DELETE("/preview", impl.DeletePreview)
	router.POST("/lots/:lotID/bids", impl.PostLotBids)
	router.PUT("/basket/:lotID", impl.PutBasketLot)
	router.GET("/basket", impl.GetBasket)
	router.PATCH("/order", impl.PatchOrder)
	router.POST("/order", impl.PostOrder)
	router.GET("/events", impl.GetEvents)
}

// List lots
// (GET /lots?tab=all|active|closed|won)
func (impl *ServerImpl) GetLots(c *gin.Context) {
	var lots []models.Lot
	switch tab := c.DefaultQuery("tab", "all"); tab {
	case "all":
		lots = impl.state.Catalog()
	case "active":
		lots = impl.state.ActiveLots()
	case "closed":
		lots = impl.state.ClosedLots()
	case "won":
		lots = impl.state.WonLots()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid tab %q", tab)})
		return
	}
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(lots),
		"loading": impl.state.Loading(),
		"items": lo.Map(lots, func(lot models.Lot, _ int) lotView {
			return newLotView(lot, now)
		}),
	})
}

// Refetch the catalog from the remote service
// (POST /catalog/refresh)
func (impl *ServerImpl) PostCatalogRefresh(c *gin.Context) {
	if err := impl.state.RefreshCatalog(c.Request.Context()); err != nil {
		slog.Error("Fail to refresh catalog", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Fail to refresh catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(impl.state.Catalog())})
}

// Select a lot for preview and hydrate its detail
// (POST /preview/{lotID})
func (impl *ServerImpl) PostPreview(c *gin.Context) {
	if _, err := impl.state.SelectLot(c.Param("lotID")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	lot, err := impl.state.HydratePreview(c.Request.Context())
	switch {
	case errors.Is(err, auction.ErrStaleDetail):
		// 預覽在抓取期間已切換，這個回應不再有意義
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, auction.ErrUnknownLot), errors.Is(err, auction.ErrNoPreview):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	case err != nil:
		slog.Error("Fail to hydrate preview", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Fail to fetch lot detail"})
		return
	}
	c.JSON(http.StatusOK, newLotView(lot, time.Now()))
}

// Close the preview
// (DELETE /preview)
func (impl *ServerImpl) DeletePreview(c *gin.Context) {
	impl.state.ClearPreview()
	c.Status(http.StatusNoContent)
}

// Place a bid on a lot
// (POST /lots/{lotID}/bids)
func (impl *ServerImpl) PostLotBids(c *gin.Context) {
	var body struct {
		Bid int64 `json:"bid"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	lot, err := impl.state.PlaceBid(c.Param("lotID"), body.Bid)
	switch {
	case errors.Is(err, auction.ErrUnknownLot):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	case errors.Is(err, models.ErrInvalidBid):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newLotView(lot, time.Now()))
}

// Toggle basket membership for a lot
// (PUT /basket/{lotID})
func (impl *ServerImpl) PutBasketLot(c *gin.Context) {
	var body struct {
		Included bool `json:"included"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	err := impl.state.ToggleOrderedLot(c.Param("lotID"), body.Included)
	switch {
	case errors.Is(err, auction.ErrUnknownLot):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	case errors.Is(err, auction.ErrIneligibleSelection):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, impl.basketView())
}

// Get the basket content and total
// (GET /basket)
func (impl *ServerImpl) GetBasket(c *gin.Context) {
	c.JSON(http.StatusOK, impl.basketView())
}

// Update an order form field
// (PATCH /order)
func (impl *ServerImpl) PatchOrder(c *gin.Context) {
	var body struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	formErrors, err := impl.state.SetOrderField(body.Field, body.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": formErrors, "valid": len(formErrors) == 0})
}

// Submit the order
// (POST /order)
func (impl *ServerImpl) PostOrder(c *gin.Context) {
	result, err := impl.state.SubmitOrder(c.Request.Context())
	switch {
	case errors.Is(err, auction.ErrOrderNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	case err != nil:
		slog.Error("Fail to submit order", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Fail to submit order"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": result.ID})
}

// Stream engine notifications
// (GET /events)
func (impl *ServerImpl) GetEvents(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")

	ch := impl.hub.Subscribe()
	defer impl.hub.Unsubscribe(ch)
	for {
		select {
		case <-w.CloseNotify():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(n.Kind(), impl.eventPayload(n))
			w.Flush()
		// 30秒沒有事件就發送一個空行，確保瀏覽器和Cloudflare不會斷開連線
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}

func (impl *ServerImpl) eventPayload(n hub.Notification) any {
	now := time.Now()
	switch v := n.(type) {
	case hub.CatalogChanged:
		return gin.H{
			"count": len(v.Lots),
			"items": lo.Map(v.Lots, func(lot models.Lot, _ int) lotView {
				return newLotView(lot, now)
			}),
		}
	case hub.PreviewChanged:
		if v.Lot == nil {
			return nil
		}
		return newLotView(*v.Lot, now)
	case hub.ErrorsChanged:
		return gin.H{"errors": v.Errors, "valid": len(v.Errors) == 0}
	case hub.OrderPlaced:
		return gin.H{"id": v.OrderID}
	default:
		return gin.H{}
	}
}

func (impl *ServerImpl) basketView() gin.H {
	now := time.Now()
	return gin.H{
		"items": lo.Map(impl.state.BasketLots(), func(lot models.Lot, _ int) lotView {
			return newLotView(lot, now)
		}),
		"selected": impl.state.Order().Items,
		"total":    impl.state.Total(),
	}
}
