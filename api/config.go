package api

import "time"

type ServerConfig struct {
	Catalog CatalogConfig
}

type CatalogConfig struct {
	// BaseURL 是目錄與訂單服務的API位址
	BaseURL string
	// CDNBaseURL 用於解析商品圖片的相對路徑
	CDNBaseURL string
	// Timeout 是單次遠端呼叫的逾時時間
	Timeout time.Duration
}
