package model

import "time"

// Customer: профиль покупателя. Гость имеет Registered == false.
type Customer struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Registered bool      `json:"registered"`
	CreatedAt  time.Time `json:"created_at"`
}

// Basket: текущая корзина покупателя.
type Basket struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	Currency    string     `json:"currency"`
	Items       []LineItem `json:"items"`
	CouponCodes []string   `json:"coupon_codes,omitempty"`
}
