package auction

import "errors"

var (
	// ErrUnknownLot 表示目錄中不存在指定的商品
	ErrUnknownLot = errors.New("unknown lot")
	// ErrIneligibleSelection 表示試圖將不符合「已結標且由目前使用者得標」
	// 條件的商品加入購物籃，該操作會被拒絕且不改動任何狀態
	ErrIneligibleSelection = errors.New("lot is not closed and won")
	// ErrNoPreview 表示目前沒有任何商品在預覽中
	ErrNoPreview = errors.New("no lot is being previewed")
	// ErrStaleDetail 表示詳細資訊抓取完成時預覽已切換到別的商品，
	// 過期的結果會被丟棄而不套用
	ErrStaleDetail = errors.New("stale lot detail discarded")
	// ErrOrderNotReady 表示訂單尚不可送出：表單有誤或購物籃為空
	ErrOrderNotReady = errors.New("order is not ready to submit")
)
