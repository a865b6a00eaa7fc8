package api

import (
	"time"

	"gavel/models"
)

// lotView 是商品在檢視層的快照，
// 衍生欄位在建立當下計算，不會被快取。
type lotView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	About         string    `json:"about"`
	Description   string    `json:"description,omitempty"`
	Image         string    `json:"image"`
	Status        string    `json:"status"`
	Datetime      time.Time `json:"datetime"`
	Price         int64     `json:"price"`
	MinPrice      int64     `json:"minPrice"`
	NextBid       int64     `json:"nextBid"`
	History       []int64   `json:"history,omitempty"`
	IsMyBid       bool      `json:"isMyBid"`
	TimeStatus    string    `json:"timeStatus"`
	AuctionStatus string    `json:"auctionStatus"`
}

func newLotView(lot models.Lot, now time.Time) lotView {
	return lotView{
		ID:            lot.ID,
		Title:         lot.Title,
		About:         lot.About,
		Description:   lot.Description,
		Image:         lot.Image,
		Status:        string(lot.Status),
		Datetime:      lot.Datetime,
		Price:         lot.Price,
		MinPrice:      lot.MinPrice,
		NextBid:       lot.NextBid(),
		History:       lot.History,
		IsMyBid:       lot.IsMyBid(),
		TimeStatus:    lot.TimeStatus(now),
		AuctionStatus: lot.AuctionStatus(),
	}
}
