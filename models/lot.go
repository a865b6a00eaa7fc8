package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidBid 表示一次被拒絕的出價，
// 包含商品不在拍賣中、金額不足與詳細資訊尚未載入的情況。
// 出價被拒絕時商品狀態不會有任何變更。
var ErrInvalidBid = errors.New("invalid bid")

// LotStatus 代表拍賣商品的拍賣階段
type LotStatus string

const (
	// LotStatusWait 尚未開始拍賣
	LotStatusWait LotStatus = "wait"
	// LotStatusActive 拍賣進行中，可以出價
	LotStatusActive LotStatus = "active"
	// LotStatusClosed 拍賣已結束
	LotStatusClosed LotStatus = "closed"
)

// ParseLotStatus 將目錄服務回傳的狀態字串轉為 LotStatus
func ParseLotStatus(raw string) (LotStatus, error) {
	switch status := LotStatus(raw); status {
	case LotStatusWait, LotStatusActive, LotStatusClosed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown lot status %q", raw)
	}
}

// Lot 代表拍賣系統中的一件商品
// 包含商品資訊、最低加價額、出價紀錄與拍賣時間等資訊。
// 拍賣階段的轉換由目錄服務決定，引擎只接受目錄回傳的
// status 與 datetime 作為唯一的事實來源，不自行計時。
type Lot struct {
	ID          string
	Title       string
	About       string
	Description string
	Image       string
	Status      LotStatus
	Datetime    time.Time
	Price       int64
	MinPrice    int64
	History     []int64

	detailLoaded bool
	lastBidMine  bool
}

// LotDetail 是延遲載入的商品詳細資訊
type LotDetail struct {
	Description string
	History     []int64
}

// ApplyDetail 將延遲載入的詳細資訊套用到商品上。
// 一旦 History 非空，Price 會同步為最後一筆出價。
func (l *Lot) ApplyDetail(detail LotDetail) {
	l.Description = detail.Description
	l.History = append([]int64(nil), detail.History...)
	if len(l.History) > 0 {
		l.Price = l.History[len(l.History)-1]
	}
	l.detailLoaded = true
}

// PlaceBid 對商品出價。
// 僅在拍賣進行中、詳細資訊已載入且金額達到 NextBid 時接受，
// 接受後出價會附加到 History 並更新 Price，且標記為目前使用者的出價。
// 任何一項條件不符都回傳 ErrInvalidBid 且不改動任何欄位。
func (l *Lot) PlaceBid(amount int64) error {
	if !l.detailLoaded {
		return fmt.Errorf("%w: lot %s detail is not loaded yet", ErrInvalidBid, l.ID)
	}
	if l.Status != LotStatusActive {
		return fmt.Errorf("%w: lot %s is not open for bidding", ErrInvalidBid, l.ID)
	}
	if next := l.NextBid(); amount < next {
		return fmt.Errorf("%w: amount %d is below the minimum next bid %d", ErrInvalidBid, amount, next)
	}
	l.History = append(l.History, amount)
	l.Price = amount
	l.lastBidMine = true
	return nil
}

// MarkMine 標記最後一筆出價是否屬於目前使用者。
// 目錄回傳的資料不含出價者身分，由引擎比對本地出價紀錄後呼叫。
func (l *Lot) MarkMine(mine bool) {
	l.lastBidMine = mine
}

// NextBid 回傳下一次可被接受的最低出價。
// 採用加成規則：新的出價必須至少比目前價格高出最低加價額，
// 即 NextBid = Price + MinPrice。
func (l Lot) NextBid() int64 {
	return l.Price + l.MinPrice
}

// IsMyBid 回傳最後一筆被接受的出價是否屬於目前使用者
func (l Lot) IsMyBid() bool {
	return l.lastBidMine
}

// DetailLoaded 回傳詳細資訊是否已從目錄服務載入
func (l Lot) DetailLoaded() bool {
	return l.detailLoaded
}

// Snapshot 回傳商品的副本，出價紀錄另行複製，
// 讓外部不會持有目錄內商品的可變參照。
func (l Lot) Snapshot() Lot {
	out := l
	out.History = append([]int64(nil), l.History...)
	return out
}

// TimeStatus 依拍賣階段回傳時間相關的顯示文字。
// 每次讀取都重新計算，不做任何快取。
func (l Lot) TimeStatus(now time.Time) string {
	switch l.Status {
	case LotStatusWait:
		return "Opens in " + formatInterval(l.Datetime.Sub(now))
	case LotStatusActive:
		return formatInterval(l.Datetime.Sub(now)) + " left"
	default:
		return "Closed " + l.Datetime.Format("02.01.2006 15:04")
	}
}

// AuctionStatus 回傳拍賣結果相關的顯示文字
func (l Lot) AuctionStatus() string {
	switch l.Status {
	case LotStatusWait:
		return "Auction has not started"
	case LotStatusActive:
		return fmt.Sprintf("Bidding from %d", l.NextBid())
	default:
		if l.lastBidMine {
			return fmt.Sprintf("Won at %d", l.Price)
		}
		return fmt.Sprintf("Sold for %d", l.Price)
	}
}

func formatInterval(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	hours := (d % (24 * time.Hour)) / time.Hour
	minutes := (d % time.Hour) / time.Minute
	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}
