package hub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gavel/adapters/hub"
	"gavel/models"
)

func TestHub(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := hub.NewHub(nil)
	defer h.Close()

	// 測試訂閱
	ch := h.Subscribe()
	assert.NotNil(t, ch)
	assert.False(t, h.IsIdle())

	// 測試廣播帶型別的通知
	h.Broadcast(hub.ErrorsChanged{Errors: models.FormErrors{models.OrderFieldEmail: "Email is required"}})
	select {
	case received := <-ch:
		notification, ok := received.(hub.ErrorsChanged)
		require.True(t, ok, "expected ErrorsChanged, got %T", received)
		assert.Equal(t, "Email is required", notification.Errors[models.OrderFieldEmail])
	case <-time.After(time.Second):
		t.Fatal("did not receive notification in time")
	}

	// 測試取消訂閱
	h.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	assert.True(t, h.IsIdle())
}

func TestHubBroadcastDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := hub.NewHub(nil)
	defer h.Close()

	// 訂閱者完全不消費，廣播仍不可阻塞引擎
	ch := h.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			h.Broadcast(hub.AuctionChanged{})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	// 通知依序送達
	for i := 0; i < 1000; i++ {
		select {
		case n, ok := <-ch:
			require.True(t, ok)
			assert.Equal(t, hub.AuctionChanged{}, n)
		case <-time.After(time.Second):
			t.Fatal("did not receive buffered notification in time")
		}
	}
	h.Unsubscribe(ch)
}

func TestHubMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := hub.NewHub(nil)
	defer h.Close()

	first := h.Subscribe()
	second := h.Subscribe()
	h.Broadcast(hub.OrderPlaced{OrderID: "order-1"})

	for _, ch := range []<-chan hub.Notification{first, second} {
		select {
		case received := <-ch:
			assert.Equal(t, hub.OrderPlaced{OrderID: "order-1"}, received)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive notification in time")
		}
	}
}

func TestHubClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := hub.NewHub(nil)
	ch := h.Subscribe()
	h.Close()

	// 關閉後所有訂閱者的通道被關閉，廣播是無操作
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	h.Broadcast(hub.AuctionChanged{})

	// 關閉後的新訂閱直接收到已關閉的通道
	late := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "late channel should be closed")
}

func TestNotificationKinds(t *testing.T) {
	// 事件串流上的對外名稱
	assert.Equal(t, "items:changed", hub.CatalogChanged{}.Kind())
	assert.Equal(t, "preview:changed", hub.PreviewChanged{}.Kind())
	assert.Equal(t, "auction:changed", hub.AuctionChanged{}.Kind())
	assert.Equal(t, "errors:change", hub.ErrorsChanged{}.Kind())
	assert.Equal(t, "order:placed", hub.OrderPlaced{}.Kind())
}
