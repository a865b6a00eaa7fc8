package auction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"gavel/adapters/hub"
	"gavel/models"
)

// CatalogClient 定義引擎所需的遠端目錄與訂單服務操作
type CatalogClient interface {
	// GetLotList 取得完整的商品目錄
	GetLotList(ctx context.Context) ([]models.Lot, error)
	// GetLotItem 取得單一商品延遲載入的詳細資訊
	GetLotItem(ctx context.Context, id string) (models.LotDetail, error)
	// OrderLots 送出結帳訂單
	OrderLots(ctx context.Context, order models.Order) (models.OrderResult, error)
}

// AppState 是拍賣引擎的聚合根，
// 持有商品目錄、預覽選擇、購物籃與進行中的訂單表單。
// 所有變更都在單一互斥鎖下同步完成，對應的通知也在鎖內廣播，
// 所以訂閱者收到通知時不會觀察到變更到一半的狀態，
// 通知的順序也和變更的順序一致。
// 遠端呼叫都在鎖外進行，回來後重新取鎖並重新驗證前置條件。
type AppState struct {
	client CatalogClient
	hub    *hub.Hub
	logger *slog.Logger

	mu      sync.Mutex
	catalog []*models.Lot
	index   map[string]*models.Lot
	preview string
	basket  []string
	form    models.OrderForm
	myBids  map[string]int64
	loading bool
}

// New 建立拍賣引擎。
// client 與 h 是引擎啟動時注入的依賴，引擎不持有任何全域狀態。
func New(client CatalogClient, h *hub.Hub, logger *slog.Logger) *AppState {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppState{
		client: client,
		hub:    h,
		logger: logger.With(slog.String("caller", "AppState")),
		index:  make(map[string]*models.Lot),
		myBids: make(map[string]int64),
	}
}

// RefreshCatalog 從目錄服務重新抓取商品目錄並整批替換。
// 抓取失敗時目錄維持原狀，錯誤會回傳給呼叫者。
func (s *AppState) RefreshCatalog(ctx context.Context) error {
	const op = "RefreshCatalog"

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	lots, err := s.client.GetLotList(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("[%s] Fail to fetch catalog, err=%w", op, err)
	}
	s.setCatalogLocked(lots)
	return nil
}

// SetCatalog 以目錄服務回傳的清單整批替換商品目錄。
// 重複的id僅保留第一筆；預覽只有在原本的商品不再存在時才會被重設；
// 購物籃會被修剪到仍符合「已結標且得標」的商品。
func (s *AppState) SetCatalog(lots []models.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCatalogLocked(lots)
}

func (s *AppState) setCatalogLocked(lots []models.Lot) {
	catalog := make([]*models.Lot, 0, len(lots))
	index := make(map[string]*models.Lot, len(lots))
	for _, lot := range lots {
		if _, exists := index[lot.ID]; exists {
			s.logger.Warn("Duplicate lot in catalog feed", slog.String("id", lot.ID))
			continue
		}
		l := lot
		// 目錄來源不含出價者身分，若重抓後價格仍等於本地最後一次
		// 成功出價的金額，視為得標狀態仍屬於目前使用者
		if amount, mine := s.myBids[l.ID]; mine && l.Price == amount {
			l.MarkMine(true)
		} else {
			delete(s.myBids, l.ID)
		}
		catalog = append(catalog, &l)
		index[l.ID] = &l
	}
	s.catalog, s.index = catalog, index

	if s.preview != "" {
		if _, exists := index[s.preview]; !exists {
			s.preview = ""
		}
	}
	s.basket = lo.Filter(s.basket, func(id string, _ int) bool {
		return s.qualifiesLocked(id)
	})
	s.hub.Broadcast(hub.CatalogChanged{Lots: s.catalogLocked()})
}

// SelectLot 將指定商品設為預覽。
// 即使重新選擇同一件商品也會再次廣播 PreviewChanged，
// 讓訂閱者能在詳細資訊載入後重新整理。
func (s *AppState) SelectLot(id string) (models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, exists := s.index[id]
	if !exists {
		return models.Lot{}, fmt.Errorf("%w: %s", ErrUnknownLot, id)
	}
	s.preview = id
	snapshot := lot.Snapshot()
	s.hub.Broadcast(hub.PreviewChanged{Lot: &snapshot})
	return snapshot, nil
}

// ClearPreview 關閉預覽並廣播不帶商品的 PreviewChanged
func (s *AppState) ClearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preview = ""
	s.hub.Broadcast(hub.PreviewChanged{Lot: nil})
}

// HydratePreview 為目前預覽的商品延遲載入詳細資訊。
// 抓取在鎖外進行；完成後若預覽已經切換到別的商品，
// 過期的結果會被丟棄並回傳 ErrStaleDetail。
func (s *AppState) HydratePreview(ctx context.Context) (models.Lot, error) {
	const op = "HydratePreview"

	s.mu.Lock()
	id := s.preview
	s.mu.Unlock()
	if id == "" {
		return models.Lot{}, ErrNoPreview
	}

	detail, err := s.client.GetLotItem(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return models.Lot{}, fmt.Errorf("[%s] Fail to fetch lot detail, id=%s, err=%w", op, id, err)
	}
	if s.preview != id {
		s.logger.Debug("Discard stale lot detail", slog.String("id", id), slog.String("preview", s.preview))
		return models.Lot{}, fmt.Errorf("%w: %s", ErrStaleDetail, id)
	}
	lot, exists := s.index[id]
	if !exists {
		// 抓取期間目錄被替換且商品已下架
		return models.Lot{}, fmt.Errorf("%w: %s", ErrUnknownLot, id)
	}
	lot.ApplyDetail(detail)
	if amount, mine := s.myBids[id]; mine && lot.Price == amount {
		lot.MarkMine(true)
	} else {
		lot.MarkMine(false)
		delete(s.myBids, id)
	}
	snapshot := lot.Snapshot()
	s.hub.Broadcast(hub.PreviewChanged{Lot: &snapshot})
	return snapshot, nil
}

// PlaceBid 對指定商品出價。
// 出價被拒絕時不會改動任何狀態，錯誤為 models.ErrInvalidBid。
func (s *AppState) PlaceBid(id string, amount int64) (models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, exists := s.index[id]
	if !exists {
		return models.Lot{}, fmt.Errorf("%w: %s", ErrUnknownLot, id)
	}
	if err := lot.PlaceBid(amount); err != nil {
		return models.Lot{}, err
	}
	s.myBids[id] = amount
	s.logger.Info("Bid accepted", slog.String("id", id), slog.Int64("amount", amount))
	s.hub.Broadcast(hub.AuctionChanged{})
	return lot.Snapshot(), nil
}

// ToggleOrderedLot 將商品加入或移出購物籃。
// 只有「已結標且由目前使用者得標」的商品可以加入；
// 移出一個不在購物籃中的商品是無操作。
func (s *AppState) ToggleOrderedLot(id string, included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !included {
		s.basket = lo.Without(s.basket, id)
		return nil
	}
	if _, exists := s.index[id]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownLot, id)
	}
	if !s.qualifiesLocked(id) {
		return fmt.Errorf("%w: %s", ErrIneligibleSelection, id)
	}
	if !lo.Contains(s.basket, id) {
		s.basket = append(s.basket, id)
	}
	return nil
}

// qualifiesLocked 判斷商品是否符合加入購物籃的條件
func (s *AppState) qualifiesLocked(id string) bool {
	lot, exists := s.index[id]
	return exists && lot.Status == models.LotStatusClosed && lot.IsMyBid()
}

// Catalog 回傳目錄中所有商品的副本
func (s *AppState) Catalog() []models.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogLocked()
}

// ActiveLots 回傳拍賣進行中的商品，順序與目錄一致
func (s *AppState) ActiveLots() []models.Lot {
	return s.filter(func(l *models.Lot) bool { return l.Status == models.LotStatusActive })
}

// ClosedLots 回傳已結標的商品，順序與目錄一致
func (s *AppState) ClosedLots() []models.Lot {
	return s.filter(func(l *models.Lot) bool { return l.Status == models.LotStatusClosed })
}

// WonLots 回傳已結標且由目前使用者得標的商品
func (s *AppState) WonLots() []models.Lot {
	return s.filter(func(l *models.Lot) bool { return l.Status == models.LotStatusClosed && l.IsMyBid() })
}

func (s *AppState) filter(keep func(*models.Lot) bool) []models.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lot, 0, len(s.catalog))
	for _, lot := range s.catalog {
		if keep(lot) {
			out = append(out, lot.Snapshot())
		}
	}
	return out
}

func (s *AppState) catalogLocked() []models.Lot {
	return lo.Map(s.catalog, func(lot *models.Lot, _ int) models.Lot {
		return lot.Snapshot()
	})
}

// Preview 回傳目前預覽中的商品
func (s *AppState) Preview() (models.Lot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, exists := s.index[s.preview]
	if s.preview == "" || !exists {
		return models.Lot{}, false
	}
	return lot.Snapshot(), true
}

// Loading 回傳目前是否有目錄抓取正在進行
func (s *AppState) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// BasketLots 回傳購物籃中所有商品的副本，順序為加入順序
func (s *AppState) BasketLots() []models.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lot, 0, len(s.basket))
	for _, id := range s.basket {
		if lot, exists := s.index[id]; exists {
			out = append(out, lot.Snapshot())
		}
	}
	return out
}

// Total 回傳購物籃中所有商品的價格總和，空購物籃為0
func (s *AppState) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.SumBy(s.basket, func(id string) int64 {
		lot, exists := s.index[id]
		if !exists {
			return 0
		}
		return lot.Price
	})
}

// ClearBasket 清空購物籃並廣播 AuctionChanged，用於結帳成功後
func (s *AppState) ClearBasket() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basket = nil
	s.hub.Broadcast(hub.AuctionChanged{})
}

// SetOrderField 設定訂單表單欄位並觸發驗證。
// 不論驗證結果為何都會廣播 ErrorsChanged，
// 讓訂閱者能清掉已經過時的錯誤顯示。
func (s *AppState) SetOrderField(field, value string) (models.FormErrors, error) {
	const op = "SetOrderField"

	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case models.OrderFieldEmail:
		s.form.Email = value
	case models.OrderFieldPhone:
		s.form.Phone = value
	default:
		return nil, fmt.Errorf("[%s] Unknown order field %q", op, field)
	}
	errs := models.ValidateOrder(s.form)
	s.hub.Broadcast(hub.ErrorsChanged{Errors: errs})
	return errs, nil
}

// Order 回傳目前的訂單快照，Items 為購物籃在此刻的內容
func (s *AppState) Order() models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderLocked()
}

func (s *AppState) orderLocked() models.Order {
	return models.Order{
		OrderForm: s.form,
		Items:     append([]string(nil), s.basket...),
	}
}

// SubmitOrder 送出訂單。
// 只有表單驗證通過且購物籃非空時才可送出；
// 送出成功會清空購物籃與表單並廣播 AuctionChanged 和 OrderPlaced，
// 失敗時所有狀態維持原狀。
func (s *AppState) SubmitOrder(ctx context.Context) (models.OrderResult, error) {
	const op = "SubmitOrder"

	s.mu.Lock()
	if errs := models.ValidateOrder(s.form); len(errs) > 0 {
		s.mu.Unlock()
		return models.OrderResult{}, fmt.Errorf("%w: invalid fields %v", ErrOrderNotReady, lo.Keys(errs))
	}
	if len(s.basket) == 0 {
		s.mu.Unlock()
		return models.OrderResult{}, fmt.Errorf("%w: basket is empty", ErrOrderNotReady)
	}
	order := s.orderLocked()
	s.mu.Unlock()

	result, err := s.client.OrderLots(ctx, order)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("[%s] Fail to submit order, err=%w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.basket = nil
	s.form = models.OrderForm{}
	s.logger.Info("Order placed", slog.String("orderID", result.ID), slog.Int("items", len(order.Items)))
	s.hub.Broadcast(hub.AuctionChanged{})
	s.hub.Broadcast(hub.OrderPlaced{OrderID: result.ID})
	return result, nil
}
