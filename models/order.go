package models

import "strings"

// 訂單表單的欄位名稱
const (
	OrderFieldEmail = "email"
	OrderFieldPhone = "phone"
)

// OrderForm 是結帳前由使用者填寫的聯絡資訊
type OrderForm struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order 是送往訂單服務的結帳內容，
// Items 只在送出當下由購物籃產生，檢視層不能直接修改。
type Order struct {
	OrderForm
	Items []string `json:"items"`
}

// OrderResult 是訂單服務回傳的結帳結果
type OrderResult struct {
	ID string `json:"id"`
}

// FormErrors 是欄位名稱到錯誤訊息的對照表，空表代表表單合法
type FormErrors map[string]string

// ValidateOrder 驗證訂單表單。
// 兩個欄位皆為必填且獨立檢查，目前不做格式驗證。
func ValidateOrder(form OrderForm) FormErrors {
	errs := FormErrors{}
	if strings.TrimSpace(form.Email) == "" {
		errs[OrderFieldEmail] = "Email is required"
	}
	if strings.TrimSpace(form.Phone) == "" {
		errs[OrderFieldPhone] = "Phone is required"
	}
	return errs
}
