package auction_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gavel/adapters/hub"
	"gavel/auction"
	"gavel/models"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient 是引擎測試用的目錄服務替身
type fakeClient struct {
	lots      []models.Lot
	listErr   error
	detail    models.LotDetail
	detailErr error
	orderID   string
	orderErr  error
	orders    []models.Order

	// onGetLotItem 在詳細資訊抓取期間被呼叫，用於模擬抓取尚未完成時
	// 引擎又收到其他指令的情況
	onGetLotItem func(id string)
}

func (f *fakeClient) GetLotList(ctx context.Context) ([]models.Lot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.lots, nil
}

func (f *fakeClient) GetLotItem(ctx context.Context, id string) (models.LotDetail, error) {
	if f.onGetLotItem != nil {
		f.onGetLotItem(id)
	}
	if f.detailErr != nil {
		return models.LotDetail{}, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeClient) OrderLots(ctx context.Context, order models.Order) (models.OrderResult, error) {
	if f.orderErr != nil {
		return models.OrderResult{}, f.orderErr
	}
	f.orders = append(f.orders, order)
	return models.OrderResult{ID: f.orderID}, nil
}

// newState 建立接上替身客戶端的引擎，並回傳一個已訂閱的通知通道
func newState(t *testing.T, client *fakeClient) (*auction.AppState, <-chan hub.Notification) {
	t.Helper()
	h := hub.NewHub(nil)
	t.Cleanup(h.Close)
	ch := h.Subscribe()
	return auction.New(client, h, nil), ch
}

// awaitKind 讀取通知直到出現指定名稱的通知
func awaitKind(t *testing.T, ch <-chan hub.Notification, kind string) hub.Notification {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "notification channel closed")
			if n.Kind() == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("did not receive %q notification in time", kind)
			return nil
		}
	}
}

func lotFixture(id string, status models.LotStatus, price, minPrice int64) models.Lot {
	return models.Lot{
		ID:       id,
		Title:    "Lot " + id,
		About:    "short text",
		Status:   status,
		Datetime: time.Now().Add(time.Hour),
		Price:    price,
		MinPrice: minPrice,
	}
}

// wonLot 走完整的流程讓商品 id 成為「已結標且由目前使用者得標」:
// 選擇預覽、載入詳細資訊、出價，再以結標後的目錄整批替換。
func wonLot(t *testing.T, state *auction.AppState, fake *fakeClient, id string, price, minPrice int64) {
	t.Helper()
	state.SetCatalog([]models.Lot{lotFixture(id, models.LotStatusActive, price, minPrice)})
	_, err := state.SelectLot(id)
	require.NoError(t, err)
	_, err = state.HydratePreview(context.Background())
	require.NoError(t, err)
	winning := price + minPrice
	_, err = state.PlaceBid(id, winning)
	require.NoError(t, err)

	closed := lotFixture(id, models.LotStatusClosed, winning, minPrice)
	state.SetCatalog([]models.Lot{closed})
}
