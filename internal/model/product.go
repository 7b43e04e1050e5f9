package model

import "github.com/shopspring/decimal"

// Product: товар каталога витрины.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Brand       string          `json:"brand,omitempty"`
	Online      bool            `json:"online"`
}
