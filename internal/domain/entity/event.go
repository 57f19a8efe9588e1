package entity

import "time"

// Sender identifies who sent an inquiry email. Name falls back to
// SenderNameUnknown and Email to SenderEmailUnknown when extraction finds
// nothing usable; Confidence reflects how much of the identity was matched.
type Sender struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
}

// ProductMention is a single occurrence of a catalog product name in the
// email text. Quantity and Unit are nil when no usable token was found near
// the mention. The same product mentioned on two lines yields two mentions.
type ProductMention struct {
	Name       string   `json:"name"`
	Quantity   *float64 `json:"quantity"`
	Unit       *string  `json:"unit"`
	Confidence float64  `json:"confidence"`
	Notes      string   `json:"notes"`
}

// HasQuantity reports whether a numeric quantity was extracted.
func (m ProductMention) HasQuantity() bool {
	return m.Quantity != nil
}

// ParsedEvent is the structured record produced from one inquiry email.
// It is immutable after creation; Gaps is always derivable from Sender and
// Products and is never edited independently.
type ParsedEvent struct {
	EmailID    string           `json:"email_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Sender     Sender           `json:"sender"`
	Products   []ProductMention `json:"products"`
	Urgency    *string          `json:"urgency"`
	Currency   *string          `json:"currency"`
	Gaps       []string         `json:"gaps"`
	RawContent string           `json:"raw_content"`
}
