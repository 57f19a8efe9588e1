package entity

// Quote status constants. A quote is created in exactly one of these states
// and never transitions.
const (
	QuoteStatusComplete = "complete"
	QuoteStatusPending  = "pending"
)

// Urgency level constants for ParsedEvent.Urgency.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Sentinel values used when sender extraction finds nothing usable.
const (
	SenderNameUnknown  = "Unknown"
	SenderEmailUnknown = "unknown@example.com"
)

// Activity log action constants.
const (
	ActionStart    = "start"
	ActionSkip     = "skip"
	ActionParse    = "parse"
	ActionAck      = "ack"
	ActionQuote    = "quote"
	ActionError    = "error"
	ActionInfo     = "info"
	ActionComplete = "complete"
)
