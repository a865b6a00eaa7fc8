package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/smallnest/chanx"
)

// Hub 管理引擎通知的所有訂閱者，並將通知廣播給所有訂閱者。
// 每個訂閱者擁有獨立的無界緩衝，所以廣播不會因為訂閱者
// 消費太慢而阻塞引擎的同步變更。
type Hub struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[<-chan Notification]*subscriber
	closed      bool
}

type subscriber struct {
	ch     *chanx.UnboundedChan[Notification]
	cancel context.CancelFunc
}

// NewHub 建立一個新的通知中心
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With(slog.String("caller", "Hub")),
		subscribers: make(map[<-chan Notification]*subscriber),
	}
}

// Subscribe 建立一個新的訂閱，並回傳接收通知的唯讀通道。
// Hub 關閉後建立的訂閱會直接收到已關閉的通道。
func (h *Hub) Subscribe() <-chan Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Notification)
		close(ch)
		return ch
	}

	ctx, cancel := context.WithCancel(h.ctx)
	ch := chanx.NewUnboundedChan[Notification](ctx, 16)
	h.subscribers[ch.Out] = &subscriber{ch: ch, cancel: cancel}
	return ch.Out
}

// Unsubscribe 移除指定的訂閱並關閉其通道，未消費的通知會被丟棄
func (h *Hub) Unsubscribe(ch <-chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, exists := h.subscribers[ch]
	if !exists {
		return
	}
	delete(h.subscribers, ch)
	sub.cancel()
}

// Broadcast 將通知廣播給所有仍在訂閱清單中的訂閱者
func (h *Hub) Broadcast(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	h.logger.Debug("Broadcast notification", slog.String("kind", n.Kind()), slog.Int("subscribers", len(h.subscribers)))
	for _, sub := range h.subscribers {
		sub.ch.In <- n
	}
}

// IsIdle 判斷目前是否沒有任何訂閱者
func (h *Hub) IsIdle() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers) == 0
}

// Close 關閉通知中心，所有訂閱者的通道都會被關閉
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.cancel()
	clear(h.subscribers)
}
