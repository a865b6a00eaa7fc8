package catalogapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/adapters/catalogapi"
	"gavel/models"
)

func newTestClient(t *testing.T, handler http.Handler) *catalogapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := catalogapi.NewClient(server.URL, "https://cdn.example.com/content", time.Second, nil)
	require.NoError(t, err)
	return client
}

func TestGetLotList(t *testing.T) {
	var requestID string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lot", r.URL.Path)
		requestID = r.Header.Get("X-Request-Id")
		json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"items": []map[string]any{
				{
					"id": "1", "title": "Antique clock", "about": "short text",
					"image": "img/1.png", "status": "active",
					"datetime": "2024-06-10T12:00:00Z", "price": 100, "minPrice": 10,
				},
				{
					"id": "2", "title": "Oil painting", "about": "short text",
					"image": "https://static.example.com/2.png", "status": "closed",
					"datetime": "2024-06-01T12:00:00Z", "price": 250, "minPrice": 25,
				},
			},
		})
	}))

	lots, err := client.GetLotList(context.Background())
	require.NoError(t, err)
	require.Len(t, lots, 2)

	// 相對路徑的圖片解析成CDN上的完整網址，絕對路徑保持不變
	assert.Equal(t, "https://cdn.example.com/content/img/1.png", lots[0].Image)
	assert.Equal(t, "https://static.example.com/2.png", lots[1].Image)
	assert.Equal(t, models.LotStatusActive, lots[0].Status)
	assert.Equal(t, models.LotStatusClosed, lots[1].Status)
	assert.False(t, lots[0].DetailLoaded())
	assert.NotEmpty(t, requestID)
}

func TestGetLotListUnknownStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"items": []map[string]any{{"id": "1", "title": "x", "status": "pending"}},
		})
	}))

	_, err := client.GetLotList(context.Background())
	assert.Error(t, err)
}

func TestGetLotItemSanitizesDescription(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lot/1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"description": `<p>Fine mahogany case.</p><script>alert(1)</script>`,
			"history":     []int64{110, 130},
		})
	}))

	detail, err := client.GetLotItem(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Fine mahogany case.</p>", detail.Description)
	assert.Equal(t, []int64{110, 130}, detail.History)
}

func TestOrderLots(t *testing.T) {
	var received models.Order
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]any{"id": "order-1"})
	}))

	order := models.Order{
		OrderForm: models.OrderForm{Email: "buyer@example.com", Phone: "+420123456789"},
		Items:     []string{"1", "2"},
	}
	result, err := client.OrderLots(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "order-1", result.ID)
	assert.Equal(t, order, received)
}

func TestUnexpectedStatusCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetLotList(context.Background())
	assert.ErrorContains(t, err, "unexpected status code")

	_, err = client.GetLotItem(context.Background(), "1")
	assert.ErrorContains(t, err, "unexpected status code")

	_, err = client.OrderLots(context.Background(), models.Order{})
	assert.ErrorContains(t, err, "unexpected status code")
}
