package hub

import "gavel/models"

// Notification 是引擎對外廣播的通知。
// 以帶型別的變體取代字串事件名稱，訂閱者以型別分派處理，
// Kind 只用於事件串流上的對外名稱。
type Notification interface {
	// Kind 回傳通知在事件串流上的名稱
	Kind() string
}

// CatalogChanged 在商品目錄被整批替換後廣播
type CatalogChanged struct {
	Lots []models.Lot
}

// PreviewChanged 在預覽商品變更或補齊詳細資訊後廣播，
// Lot 為 nil 表示關閉預覽。重新選擇同一件商品仍會廣播，
// 讓訂閱者在詳細資訊載入後能重新整理。
type PreviewChanged struct {
	Lot *models.Lot
}

// AuctionChanged 在出價或結帳改變拍賣狀態後廣播，
// 不帶資料，訂閱者需自行重新查詢。
type AuctionChanged struct{}

// ErrorsChanged 在訂單欄位驗證後廣播，空的錯誤表代表表單合法
type ErrorsChanged struct {
	Errors models.FormErrors
}

// OrderPlaced 在訂單成功送出後廣播
type OrderPlaced struct {
	OrderID string
}

func (CatalogChanged) Kind() string { return "items:changed" }
func (PreviewChanged) Kind() string { return "preview:changed" }
func (AuctionChanged) Kind() string { return "auction:changed" }
func (ErrorsChanged) Kind() string  { return "errors:change" }
func (OrderPlaced) Kind() string    { return "order:placed" }
