package entity

import "time"

// LineItem is one priced row of a complete quote.
type LineItem struct {
	Product   string  `json:"product"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
	Unit      string  `json:"unit"`
}

// Quote is the priced outcome for exactly one ParsedEvent. Status is
// terminal: a quote is emitted once as either complete or pending and never
// revised. Monetary fields are rounded to 2 decimals at this boundary;
// DiscountRate is a percentage with 1 decimal.
type Quote struct {
	EmailID        string     `json:"email_id"`
	Timestamp      time.Time  `json:"timestamp"`
	Status         string     `json:"status"`
	LineItems      []LineItem `json:"line_items"`
	Subtotal       float64    `json:"subtotal"`
	Discount       float64    `json:"discount"`
	Tax            float64    `json:"tax"`
	Total          float64    `json:"total"`
	Currency       string     `json:"currency"`
	PendingReasons []string   `json:"pending_reasons"`
	ValidUntil     time.Time  `json:"valid_until"`
	DiscountRate   float64    `json:"discount_rate"`
}

// IsComplete reports whether the quote carries priced line items.
func (q *Quote) IsComplete() bool {
	return q.Status == QuoteStatusComplete
}
