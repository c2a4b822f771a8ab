package model

import (
	"strings"
	"time"

	"github.com/last9death/maturmarket/internal/domain"
)

// AvailabilityStatus is the classified stock state of a product page.
type AvailabilityStatus string

const (
	StatusInStock    AvailabilityStatus = "IN_STOCK"
	StatusOutOfStock AvailabilityStatus = "OUT_OF_STOCK"
	StatusPreorder   AvailabilityStatus = "PREORDER"
	StatusUnknown    AvailabilityStatus = "UNKNOWN"
	StatusNotFound   AvailabilityStatus = "NOT_FOUND"
	StatusBlocked    AvailabilityStatus = "BLOCKED"
	StatusError      AvailabilityStatus = "ERROR"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusOutOfStock, StatusPreorder, StatusUnknown,
		StatusNotFound, StatusBlocked, StatusError:
		return true
	}
	return false
}

// ParseSignals records what the parser actually saw on the page. Kept on the
// product so logs can explain a classification.
type ParseSignals struct {
	InStockHits       []string
	OutOfStockHits    []string
	PreorderHits      []string
	BuyButtonFound    bool
	BuyButtonDisabled bool
	SelectorsUsed     []string
}

// Product is the result of checking a single product URL.
// Price and OldPrice are nil when the page does not expose them.
type Product struct {
	URL          string
	Title        string
	Price        *float64
	OldPrice     *float64
	Currency     string
	Availability AvailabilityStatus
	ImageURL     string
	CheckedAt    time.Time
	Signals      ParseSignals
}

func NewProduct(url string) (*Product, error) {
	if strings.TrimSpace(url) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Product{
		URL:          url,
		Currency:     "RUB",
		Availability: StatusUnknown,
		CheckedAt:    time.Now(),
	}, nil
}

// SearchResult is one product card from a catalog search page.
type SearchResult struct {
	URL          string
	Title        string
	Price        *float64
	Availability AvailabilityStatus
	ImageURL     string
}
