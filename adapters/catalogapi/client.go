package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"gavel/models"
)

// Client 負責呼叫遠端的目錄與訂單服務。
// 對引擎而言這是一個不透明的非同步邊界：
// 失敗只會被回報，不會在這裡自動重試。
type Client struct {
	baseURL    *url.URL
	cdnBaseURL *url.URL
	httpClient *http.Client
	sanitizer  *bluemonday.Policy
	logger     *slog.Logger
}

// NewClient 建立目錄服務的客戶端。
// baseURL 指向目錄與訂單API，cdnBaseURL 用於解析商品圖片的相對路徑。
func NewClient(baseURL, cdnBaseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	const op = "NewClient"

	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse base URL, err=%w", op, err)
	}
	cdn, err := url.Parse(cdnBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse CDN base URL, err=%w", op, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    base,
		cdnBaseURL: cdn,
		httpClient: &http.Client{Timeout: timeout},
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With(slog.String("caller", "CatalogClient")),
	}, nil
}

// GetLotList 取得完整的商品目錄。
// 清單不含詳細描述與出價紀錄，由預覽時再延遲載入。
func (c *Client) GetLotList(ctx context.Context) ([]models.Lot, error) {
	const op = "GetLotList"

	var payload listPayload
	if err := c.get(ctx, "/lot", &payload); err != nil {
		return nil, fmt.Errorf("[%s] Fail to fetch lot list, err=%w", op, err)
	}
	lots := make([]models.Lot, 0, len(payload.Items))
	for _, item := range payload.Items {
		lot, err := c.toLot(item)
		if err != nil {
			return nil, fmt.Errorf("[%s] Invalid lot in catalog feed, id=%s, err=%w", op, item.ID, err)
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// GetLotItem 取得單一商品延遲載入的詳細資訊，
// 描述內容會先過濾掉不安全的HTML。
func (c *Client) GetLotItem(ctx context.Context, id string) (models.LotDetail, error) {
	const op = "GetLotItem"

	var payload detailPayload
	if err := c.get(ctx, "/lot/"+url.PathEscape(id), &payload); err != nil {
		return models.LotDetail{}, fmt.Errorf("[%s] Fail to fetch lot detail, id=%s, err=%w", op, id, err)
	}
	return models.LotDetail{
		Description: c.sanitizer.Sanitize(payload.Description),
		History:     payload.History,
	}, nil
}

// OrderLots 送出結帳訂單並回傳訂單編號
func (c *Client) OrderLots(ctx context.Context, order models.Order) (models.OrderResult, error) {
	const op = "OrderLots"

	body, err := json.Marshal(order)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("[%s] Fail to marshal order, err=%w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/order", bytes.NewReader(body))
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("[%s] Fail to create request, err=%w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload orderResultPayload
	if err := c.do(req, &payload); err != nil {
		return models.OrderResult{}, fmt.Errorf("[%s] Fail to submit order, err=%w", op, err)
	}
	return models.OrderResult(payload), nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	target := c.baseURL.JoinPath(path).String()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, err
	}
	// 每個請求帶上唯一的識別碼，方便和目錄服務對帳
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("Unexpected response from catalog service",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode))
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fail to decode response, err=%w", err)
	}
	return nil
}

// toLot 將目錄回應轉為商品實體，圖片路徑解析成CDN上的完整網址
func (c *Client) toLot(payload lotPayload) (models.Lot, error) {
	status, err := models.ParseLotStatus(payload.Status)
	if err != nil {
		return models.Lot{}, err
	}
	image := payload.Image
	if image != "" && !strings.Contains(image, "://") {
		image = c.cdnBaseURL.JoinPath(image).String()
	}
	return models.Lot{
		ID:       payload.ID,
		Title:    payload.Title,
		About:    payload.About,
		Image:    image,
		Status:   status,
		Datetime: payload.Datetime,
		Price:    payload.Price,
		MinPrice: payload.MinPrice,
	}, nil
}
