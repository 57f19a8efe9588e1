package entity

import "time"

// Acknowledgment is the reply drafted for an inquiry before the quote is
// ready. It is written to the outbox as a structured record; rendering to a
// wire format (SMTP, ticketing) is outside this system.
type Acknowledgment struct {
	EmailID      string    `json:"email_id"`
	Timestamp    time.Time `json:"timestamp"`
	To           string    `json:"to"`
	Subject      string    `json:"subject"`
	Greeting     string    `json:"greeting"`
	Body         string    `json:"body"`
	Questions    []string  `json:"questions"`
	Closing      string    `json:"closing"`
	SLAHours     int       `json:"sla_hours"`
	UrgencyLevel *string   `json:"urgency_level"`
}
