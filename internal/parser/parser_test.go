package parser

import (
	"strings"
	"testing"

	"github.com/acmecorp/quote-workflow/internal/domain/entity"
	"github.com/acmecorp/quote-workflow/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestParser(t *testing.T, opts ...Option) *Parser {
	t.Helper()
	return NewParser(pricing.DefaultPriceList(), zap.NewNop(), opts...)
}

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "strips quoted reply lines",
			content:  "Need widgets\n> old message\n| another quote\nThanks",
			expected: "Need widgets\nThanks",
		},
		{
			name:     "cuts signature after dashes line",
			content:  "Need widgets\n--\nJohn Doe\nAcme Inc",
			expected: "Need widgets",
		},
		{
			name:     "cuts signature after salutation",
			content:  "Need widgets\nBest regards,\nJohn",
			expected: "Need widgets",
		},
		{
			name:     "salutation is case-insensitive",
			content:  "Need widgets\nSINCERELY,\nJohn",
			expected: "Need widgets",
		},
		{
			name:     "cuts at earliest marker",
			content:  "Need widgets\nRegards,\nJohn\n--\nsig",
			expected: "Need widgets",
		},
		{
			name:     "dashes inside a line are kept",
			content:  "Need 10 -- maybe 12 -- widgets",
			expected: "Need 10 -- maybe 12 -- widgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanContent(tt.content))
		})
	}
}

func TestParseSender(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantName       string
		wantEmail      string
		wantConfidence float64
	}{
		{
			name:           "header with display name and address",
			content:        "From: Jane Smith <jane@corp.example>\nNeed a quote",
			wantName:       "Jane Smith",
			wantEmail:      "jane@corp.example",
			wantConfidence: 1.0,
		},
		{
			name:           "header with bare name only",
			content:        "From: Jane Smith\nNeed a quote",
			wantName:       "Jane Smith",
			wantEmail:      entity.SenderEmailUnknown,
			wantConfidence: 0.8,
		},
		{
			name:           "no header but address in body",
			content:        "Please reply to jane@corp.example with pricing",
			wantName:       entity.SenderNameUnknown,
			wantEmail:      "jane@corp.example",
			wantConfidence: 0.7,
		},
		{
			name:           "nothing identifiable",
			content:        "Please send pricing information",
			wantName:       entity.SenderNameUnknown,
			wantEmail:      entity.SenderEmailUnknown,
			wantConfidence: 0.5,
		},
	}

	p := newTestParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := p.Parse(tt.content, "test-id")
			assert.Equal(t, tt.wantName, event.Sender.Name)
			assert.Equal(t, tt.wantEmail, event.Sender.Email)
			assert.InDelta(t, tt.wantConfidence, event.Sender.Confidence, 1e-9)
		})
	}
}

func TestParseSenderBelowThresholdFlagsGap(t *testing.T) {
	p := newTestParser(t)

	event := p.Parse("Please send pricing information", "test-id")

	require.Less(t, event.Sender.Confidence, 0.7)
	assert.Contains(t, event.Gaps, "Unclear sender information")
}

func TestParseProducts(t *testing.T) {
	p := newTestParser(t)

	t.Run("quantity before product wins", func(t *testing.T) {
		event := p.Parse("From: A <a@b.co>\nWe need 10 Widget Pro pieces", "id")
		require.Len(t, event.Products, 1)

		product := event.Products[0]
		assert.Equal(t, "Widget Pro", product.Name)
		require.NotNil(t, product.Quantity)
		assert.Equal(t, 10.0, *product.Quantity)
		require.NotNil(t, product.Unit)
		assert.Equal(t, "piece", *product.Unit)
		assert.Equal(t, 1.0, product.Confidence)
		assert.Equal(t, "Complete information extracted", product.Notes)
	})

	t.Run("closest quantity before product is taken", func(t *testing.T) {
		event := p.Parse("Order 5 boxes then 10 Widget Pro please", "id")
		require.Len(t, event.Products, 1)
		require.NotNil(t, event.Products[0].Quantity)
		assert.Equal(t, 10.0, *event.Products[0].Quantity)
	})

	t.Run("quantity after product used when none before", func(t *testing.T) {
		event := p.Parse("Widget Pro x 25 units required", "id")
		require.Len(t, event.Products, 1)
		require.NotNil(t, event.Products[0].Quantity)
		assert.Equal(t, 25.0, *event.Products[0].Quantity)
		require.NotNil(t, event.Products[0].Unit)
		assert.Equal(t, "unit", *event.Products[0].Unit)
	})

	t.Run("match is case-insensitive", func(t *testing.T) {
		event := p.Parse("need 3 WIDGET PRO", "id")
		require.Len(t, event.Products, 1)
		assert.Equal(t, "Widget Pro", event.Products[0].Name)
	})

	t.Run("same product on two lines yields two mentions", func(t *testing.T) {
		event := p.Parse("10 Widget Pro\n5 Widget Pro", "id")
		require.Len(t, event.Products, 2)
		assert.Equal(t, 10.0, *event.Products[0].Quantity)
		assert.Equal(t, 5.0, *event.Products[1].Quantity)
	})

	t.Run("mentions ordered by textual appearance", func(t *testing.T) {
		event := p.Parse("Quote 2 Tool Kit and 4 Gadget Basic today", "id")
		require.Len(t, event.Products, 2)
		assert.Equal(t, "Tool Kit", event.Products[0].Name)
		assert.Equal(t, "Gadget Basic", event.Products[1].Name)
	})

	t.Run("quantity outside window is ignored", func(t *testing.T) {
		padding := strings.Repeat("x", 60) + " "
		event := p.Parse("10 "+padding+"Widget Pro", "id")
		require.Len(t, event.Products, 1)
		assert.Nil(t, event.Products[0].Quantity)
		assert.Equal(t, "Quantity not specified; Unit not specified", event.Products[0].Notes)
	})

	t.Run("window size is configurable", func(t *testing.T) {
		wide := NewParser(pricing.DefaultPriceList(), zap.NewNop(), WithQuantityWindow(200))
		padding := strings.Repeat("x", 60) + " "
		event := wide.Parse("10 "+padding+"Widget Pro", "id")
		require.Len(t, event.Products, 1)
		require.NotNil(t, event.Products[0].Quantity)
		assert.Equal(t, 10.0, *event.Products[0].Quantity)
	})

	t.Run("fractional quantities are preserved", func(t *testing.T) {
		event := p.Parse("need 2.5 Bulk Pack", "id")
		require.Len(t, event.Products, 1)
		require.NotNil(t, event.Products[0].Quantity)
		assert.Equal(t, 2.5, *event.Products[0].Quantity)
	})

	t.Run("no catalog match yields empty products and gap", func(t *testing.T) {
		event := p.Parse("Looking for something else entirely", "id")
		assert.Empty(t, event.Products)
		assert.Contains(t, event.Gaps, "No products identified")
	})
}

func TestParseMissingQuantityGapPerMention(t *testing.T) {
	p := newTestParser(t)

	event := p.Parse("From: A <a@b.co>\nWidget Pro\nTool Kit", "id")
	require.Len(t, event.Products, 2)

	assert.Equal(t, []string{
		"Missing quantity for Widget Pro",
		"Missing quantity for Tool Kit",
	}, event.Gaps)
}

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		absent  bool
	}{
		{name: "asap is high", content: "Need Widget Pro asap", want: entity.UrgencyHigh},
		{name: "urgent is high", content: "This is URGENT", want: entity.UrgencyHigh},
		{name: "fast is medium", content: "fast turnaround please", want: entity.UrgencyMedium},
		{name: "first occurrence decides tier", content: "quick question, this is urgent", want: entity.UrgencyMedium},
		{name: "no keyword", content: "Need Widget Pro next month", absent: true},
	}

	p := newTestParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := p.Parse(tt.content, "id")
			if tt.absent {
				assert.Nil(t, event.Urgency)
				return
			}
			require.NotNil(t, event.Urgency)
			assert.Equal(t, tt.want, *event.Urgency)
		})
	}
}

func TestParseCurrency(t *testing.T) {
	p := newTestParser(t)

	t.Run("first whitelisted code wins, uppercased", func(t *testing.T) {
		event := p.Parse("Quote in eur please, not GBP", "id")
		require.NotNil(t, event.Currency)
		assert.Equal(t, "EUR", *event.Currency)
	})

	t.Run("absent when no code present", func(t *testing.T) {
		event := p.Parse("Quote in dollars please", "id")
		assert.Nil(t, event.Currency)
	})

	t.Run("code must be word-bounded", func(t *testing.T) {
		event := p.Parse("see our usdx notes", "id")
		assert.Nil(t, event.Currency)
	})
}

func TestParseIdempotent(t *testing.T) {
	p := newTestParser(t)
	content := "From: Jane <jane@corp.example>\nNeed 10 Widget Pro pieces, asap!"

	first := p.Parse(content, "same-id")
	second := p.Parse(content, "same-id")

	// Identical except for the timestamp.
	second.Timestamp = first.Timestamp
	assert.Equal(t, first, second)
}

func TestParseEndToEnd(t *testing.T) {
	p := newTestParser(t)

	event := p.Parse("Need 10 Widget Pro pieces, asap!", "e2e")

	require.Len(t, event.Products, 1)
	product := event.Products[0]
	assert.Equal(t, "Widget Pro", product.Name)
	require.NotNil(t, product.Quantity)
	assert.Equal(t, 10.0, *product.Quantity)
	require.NotNil(t, product.Unit)
	assert.Equal(t, "piece", *product.Unit)
	assert.Equal(t, 1.0, product.Confidence)

	require.NotNil(t, event.Urgency)
	assert.Equal(t, entity.UrgencyHigh, *event.Urgency)
	assert.Nil(t, event.Currency)
	assert.Equal(t, "Need 10 Widget Pro pieces, asap!", event.RawContent)
}

func TestDeriveGaps(t *testing.T) {
	qty := 5.0

	tests := []struct {
		name     string
		sender   entity.Sender
		products []entity.ProductMention
		want     []string
	}{
		{
			name:     "clear sender, complete product",
			sender:   entity.Sender{Confidence: 0.8},
			products: []entity.ProductMention{{Name: "Widget Pro", Quantity: &qty, Confidence: 1.0}},
			want:     []string{},
		},
		{
			name:     "no products short-circuits per-product checks",
			sender:   entity.Sender{Confidence: 0.5},
			products: nil,
			want:     []string{"Unclear sender information", "No products identified"},
		},
		{
			name:   "both gaps fire for one mention",
			sender: entity.Sender{Confidence: 0.9},
			products: []entity.ProductMention{
				{Name: "Widget Pro", Quantity: nil, Confidence: 0.5},
			},
			want: []string{
				"Missing quantity for Widget Pro",
				"Low confidence in Widget Pro extraction",
			},
		},
		{
			name:   "repeated causes repeat entries per mention",
			sender: entity.Sender{Confidence: 0.9},
			products: []entity.ProductMention{
				{Name: "Widget Pro", Quantity: nil, Confidence: 0.8},
				{Name: "Tool Kit", Quantity: nil, Confidence: 0.8},
			},
			want: []string{
				"Missing quantity for Widget Pro",
				"Missing quantity for Tool Kit",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveGaps(tt.sender, tt.products))
		})
	}
}
