package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/acmecorp/quote-workflow/internal/domain/entity"
	"github.com/acmecorp/quote-workflow/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// subtotalTolerance is the allowed drift when revalidating a rounded
// subtotal against its line items.
const subtotalTolerance = 0.01

// Config holds the pricing parameters applied to every quote.
type Config struct {
	TaxRate         float64
	DefaultCurrency string
	ValidityDays    int
}

// Generator computes quotes from parsed inquiry events. Generate is total:
// any event, however incomplete, yields a well-formed quote; missing
// information routes to a pending quote instead of an error. The generator
// holds only immutable configuration and is safe to reuse across emails.
type Generator struct {
	catalog  pricing.PriceList
	tiers    []pricing.DiscountTier
	taxRate  decimal.Decimal
	currency string
	validity time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewGenerator creates a quote generator bound to a catalog, a discount
// table and pricing configuration.
func NewGenerator(catalog pricing.PriceList, tiers []pricing.DiscountTier, cfg Config, logger *zap.Logger) *Generator {
	return &Generator{
		catalog:  catalog,
		tiers:    tiers,
		taxRate:  decimal.NewFromFloat(cfg.TaxRate),
		currency: cfg.DefaultCurrency,
		validity: time.Duration(cfg.ValidityDays) * 24 * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate produces the quote for one parsed event. The completeness
// decision is binary for the whole event: every mention must name a catalog
// product and carry a quantity, otherwise the entire quote is pending.
func (g *Generator) Generate(event *entity.ParsedEvent) *entity.Quote {
	currency := g.currency
	if event.Currency != nil {
		currency = *event.Currency
	}

	var q *entity.Quote
	if g.canComplete(event.Products) {
		q = g.completeQuote(event.EmailID, event.Products, currency)
	} else {
		q = g.pendingQuote(event.EmailID, event.Products, currency)
	}

	g.logger.Debug("Generated quote",
		zap.String("email_id", q.EmailID),
		zap.String("status", q.Status),
		zap.Float64("total", q.Total))

	return q
}

// canComplete reports whether every mention has a catalog entry and a
// quantity, and the product list is non-empty.
func (g *Generator) canComplete(products []entity.ProductMention) bool {
	if len(products) == 0 {
		return false
	}
	for _, product := range products {
		if !g.catalog.Has(product.Name) {
			return false
		}
		if product.Quantity == nil {
			return false
		}
	}
	return true
}

// completeQuote prices every mention and applies the tiered discount and
// tax. Arithmetic is decimal; amounts are rounded to 2 decimals only when
// written into the record.
func (g *Generator) completeQuote(emailID string, products []entity.ProductMention, currency string) *entity.Quote {
	lineItems := make([]entity.LineItem, 0, len(products))
	subtotal := decimal.Zero

	for _, product := range products {
		item := g.catalog[product.Name]
		unitPrice := decimal.NewFromFloat(item.Price)
		quantity := decimal.NewFromFloat(*product.Quantity)
		lineTotal := unitPrice.Mul(quantity)

		lineItems = append(lineItems, entity.LineItem{
			Product:   product.Name,
			Quantity:  *product.Quantity,
			UnitPrice: item.Price,
			Total:     lineTotal.InexactFloat64(),
			Unit:      item.Unit,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	rate := g.discountRate(subtotal)
	discount := subtotal.Mul(rate)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(g.taxRate)
	total := taxable.Add(tax)

	now := g.now()
	return &entity.Quote{
		EmailID:        emailID,
		Timestamp:      now,
		Status:         entity.QuoteStatusComplete,
		LineItems:      lineItems,
		Subtotal:       round2(subtotal),
		Discount:       round2(discount),
		Tax:            round2(tax),
		Total:          round2(total),
		Currency:       currency,
		PendingReasons: []string{},
		ValidUntil:     now.Add(g.validity),
		DiscountRate:   rate.Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64(),
	}
}

// pendingQuote enumerates why the quote cannot be priced. All monetary
// fields are zero; reaching this path guarantees at least one reason.
func (g *Generator) pendingQuote(emailID string, products []entity.ProductMention, currency string) *entity.Quote {
	reasons := []string{}

	if len(products) == 0 {
		reasons = append(reasons, "No products identified in the inquiry")
	} else {
		for _, product := range products {
			if !g.catalog.Has(product.Name) {
				reasons = append(reasons, fmt.Sprintf("Unrecognized product: '%s'", product.Name))
			}
			if product.Quantity == nil {
				reasons = append(reasons, "Missing quantity for "+product.Name)
			}
		}
	}

	now := g.now()
	return &entity.Quote{
		EmailID:        emailID,
		Timestamp:      now,
		Status:         entity.QuoteStatusPending,
		LineItems:      []entity.LineItem{},
		Currency:       currency,
		PendingReasons: reasons,
		ValidUntil:     now.Add(g.validity),
	}
}

// discountRate returns the discount of the first tier whose half-open range
// contains the subtotal. A subtotal no tier covers gets rate 0.
func (g *Generator) discountRate(subtotal decimal.Decimal) decimal.Decimal {
	amount := subtotal.InexactFloat64()
	for _, tier := range g.tiers {
		if tier.Contains(amount) {
			return decimal.NewFromFloat(tier.Discount)
		}
	}
	return decimal.Zero
}

// Summary renders a one-line human-readable description of the quote.
func Summary(q *entity.Quote) string {
	if q.Status == entity.QuoteStatusPending {
		return "Quote pending: " + strings.Join(q.PendingReasons, ", ")
	}
	if len(q.LineItems) == 1 {
		item := q.LineItems[0]
		return fmt.Sprintf("%g %s - %s %.2f", item.Quantity, item.Product, q.Currency, q.Total)
	}
	return fmt.Sprintf("%d items - %s %.2f", len(q.LineItems), q.Currency, q.Total)
}

// Validate checks a quote record for internal consistency and returns the
// list of violations found, empty when valid. It is advisory tooling for
// tests and operators; generation never gates on it.
func Validate(q *entity.Quote) []string {
	var errs []string

	if q.EmailID == "" {
		errs = append(errs, "Missing required field: email_id")
	}
	if q.Timestamp.IsZero() {
		errs = append(errs, "Missing required field: timestamp")
	}
	if q.Status != entity.QuoteStatusComplete && q.Status != entity.QuoteStatusPending {
		errs = append(errs, fmt.Sprintf("Invalid status: %q", q.Status))
	}
	if q.Currency == "" {
		errs = append(errs, "Missing required field: currency")
	}
	if q.ValidUntil.IsZero() {
		errs = append(errs, "Missing required field: valid_until")
	}

	switch q.Status {
	case entity.QuoteStatusComplete:
		if len(q.LineItems) == 0 {
			errs = append(errs, "Complete quote must have line items")
		}
		if q.Total <= 0 {
			errs = append(errs, "Complete quote must have positive total")
		}
	case entity.QuoteStatusPending:
		if q.Total != 0 {
			errs = append(errs, "Pending quote must have zero total")
		}
		if len(q.PendingReasons) == 0 {
			errs = append(errs, "Pending quote must have pending reasons")
		}
	}

	if q.Status == entity.QuoteStatusComplete && len(q.LineItems) > 0 {
		recomputed := decimal.Zero
		for _, item := range q.LineItems {
			recomputed = recomputed.Add(decimal.NewFromFloat(item.Total))
		}
		diff := recomputed.Sub(decimal.NewFromFloat(q.Subtotal)).Abs()
		if diff.InexactFloat64() > subtotalTolerance {
			errs = append(errs, "Subtotal calculation mismatch")
		}
	}

	return errs
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
