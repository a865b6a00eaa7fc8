package catalogapi

import "time"

// lotPayload 對應目錄服務回傳的單一商品
type lotPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	About       string    `json:"about"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image"`
	Status      string    `json:"status"`
	Datetime    time.Time `json:"datetime"`
	Price       int64     `json:"price"`
	MinPrice    int64     `json:"minPrice"`
	History     []int64   `json:"history,omitempty"`
}

// listPayload 對應目錄服務的商品清單回應
type listPayload struct {
	Total int          `json:"total"`
	Items []lotPayload `json:"items"`
}

// detailPayload 對應單一商品的詳細資訊回應
type detailPayload struct {
	Description string  `json:"description"`
	History     []int64 `json:"history"`
}

// orderResultPayload 對應訂單服務的結帳回應
type orderResultPayload struct {
	ID string `json:"id"`
}
