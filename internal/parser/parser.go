package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/acmecorp/quote-workflow/internal/domain/entity"
	"github.com/acmecorp/quote-workflow/internal/pricing"
	"go.uber.org/zap"
)

// DefaultQuantityWindow is how many characters around a product mention are
// searched for a quantity token. The window is a heuristic, not a parser;
// changing it changes which number gets associated with which product.
const DefaultQuantityWindow = 50

var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	fromNamePattern = regexp.MustCompile(`(?i)From:\s*([^<]+?)\s*<[^>]+>`)
	fromBarePattern = regexp.MustCompile(`(?i)From:[ \t]*([^<\n]+)`)
	currencyPattern = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|CAD|AUD|JPY)\b`)
	urgencyPattern  = regexp.MustCompile(`(?i)\b(asap|urgent|rush|immediate|quick|fast)\b`)
	quantityPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:pcs?|pieces?|units?|kits?|packs?|boxes?|sets?)?\b`)

	// Signature cut points: a line consisting solely of "--", or a salutation
	// through end of text.
	signatureDashes   = regexp.MustCompile(`(?m)^--[ \t]*$`)
	salutationPattern = regexp.MustCompile(`(?i)(Best regards,|Sincerely,|Thank you,|Regards,)`)
)

// unitKeywords maps unit vocabulary to the canonical unit name. Checked in
// order; the first pattern present anywhere in the quantity window wins.
var unitKeywords = []struct {
	pattern *regexp.Regexp
	unit    string
}{
	{regexp.MustCompile(`(?i)pcs?|pieces?`), "piece"},
	{regexp.MustCompile(`(?i)kits?`), "kit"},
	{regexp.MustCompile(`(?i)packs?`), "pack"},
	{regexp.MustCompile(`(?i)boxes?`), "box"},
	{regexp.MustCompile(`(?i)sets?`), "set"},
	{regexp.MustCompile(`(?i)units?`), "unit"},
}

// highUrgency and mediumUrgency partition the urgency vocabulary; any other
// matched keyword is classified low.
var (
	highUrgency   = map[string]bool{"asap": true, "urgent": true, "rush": true, "immediate": true}
	mediumUrgency = map[string]bool{"quick": true, "fast": true}
)

// Parser extracts structured inquiry data from raw email text. Parse is a
// pure function of its inputs: it never fails, holds no state across calls
// and degrades to sentinel values on noisy or empty input.
type Parser struct {
	catalog        pricing.PriceList
	productNames   []string
	quantityWindow int
	logger         *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithQuantityWindow overrides the lookaround window used to associate a
// quantity with a product mention.
func WithQuantityWindow(chars int) Option {
	return func(p *Parser) {
		if chars > 0 {
			p.quantityWindow = chars
		}
	}
}

// NewParser creates a parser bound to a price catalog.
func NewParser(catalog pricing.PriceList, logger *zap.Logger, opts ...Option) *Parser {
	p := &Parser{
		catalog:        catalog,
		productNames:   catalog.Names(),
		quantityWindow: DefaultQuantityWindow,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts a ParsedEvent from raw email content. The raw content is
// retained on the event for audit; all extraction runs against a cleaned
// copy with quoted replies and signature blocks removed.
func (p *Parser) Parse(content, emailID string) *entity.ParsedEvent {
	clean := CleanContent(content)

	sender := p.extractSender(clean)
	products := p.extractProducts(clean)
	urgency := p.extractUrgency(clean)
	currency := p.extractCurrency(clean)

	event := &entity.ParsedEvent{
		EmailID:    emailID,
		Timestamp:  time.Now(),
		Sender:     sender,
		Products:   products,
		Urgency:    urgency,
		Currency:   currency,
		Gaps:       DeriveGaps(sender, products),
		RawContent: content,
	}

	p.logger.Debug("Parsed inquiry email",
		zap.String("email_id", emailID),
		zap.Int("products", len(products)),
		zap.Int("gaps", len(event.Gaps)),
		zap.Float64("sender_confidence", sender.Confidence))

	return event
}

// CleanContent strips quoted-reply lines and trailing signature blocks.
// Quoted lines are those starting with ">" or "|" after trimming; the
// signature cut is the earliest of a line consisting solely of "--" or a
// closing salutation, removed through end of text.
func CleanContent(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, "|") {
			continue
		}
		kept = append(kept, line)
	}
	content = strings.Join(kept, "\n")

	// Cut repeatedly so a salutation hiding above an earlier cut point is
	// still removed.
	for {
		cut := -1
		if loc := signatureDashes.FindStringIndex(content); loc != nil {
			cut = loc[0]
		}
		if loc := salutationPattern.FindStringIndex(content); loc != nil && (cut < 0 || loc[0] < cut) {
			cut = loc[0]
		}
		if cut < 0 {
			break
		}
		content = content[:cut]
	}

	return strings.TrimSpace(content)
}

// extractSender recovers the sender identity from a From: header or, failing
// that, from any email-shaped token in the text. Confidence starts at 0.5,
// gains 0.3 for a matched display name and 0.2 for a found address, capped
// at 1.0.
func (p *Parser) extractSender(content string) entity.Sender {
	name := entity.SenderNameUnknown
	email := entity.SenderEmailUnknown
	confidence := 0.5

	if addr := emailPattern.FindString(content); addr != "" {
		email = addr
	}

	match := fromNamePattern.FindStringSubmatch(content)
	if match == nil {
		match = fromBarePattern.FindStringSubmatch(content)
	}
	if match != nil {
		if candidate := strings.TrimSpace(match[1]); candidate != "" {
			name = candidate
			confidence += 0.3
		}
	}

	if email != entity.SenderEmailUnknown {
		confidence += 0.2
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	return entity.Sender{Name: name, Email: email, Confidence: confidence}
}

// productMatch is a catalog name occurrence inside one chunk of text.
type productMatch struct {
	name string
	pos  int
}

// extractProducts scans the cleaned text line by line for catalog product
// names. Only when no line yields a match does it fall back to scanning the
// whole text at once. Mentions are ordered by first textual appearance and
// duplicates are preserved.
func (p *Parser) extractProducts(content string) []entity.ProductMention {
	mentions := []entity.ProductMention{}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mentions = append(mentions, p.mentionsIn(line)...)
	}

	if len(mentions) == 0 {
		mentions = append(mentions, p.mentionsIn(content)...)
	}

	return mentions
}

// mentionsIn finds every catalog name occurrence in text and builds a
// mention for each, in order of position.
func (p *Parser) mentionsIn(text string) []entity.ProductMention {
	lowered := strings.ToLower(text)

	var matches []productMatch
	for _, name := range p.productNames {
		needle := strings.ToLower(name)
		for from := 0; ; {
			idx := strings.Index(lowered[from:], needle)
			if idx < 0 {
				break
			}
			matches = append(matches, productMatch{name: name, pos: from + idx})
			from += idx + len(needle)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].pos < matches[j].pos
	})

	mentions := make([]entity.ProductMention, 0, len(matches))
	for _, m := range matches {
		quantity, unit := p.quantityNear(text, m.pos)
		mentions = append(mentions, entity.ProductMention{
			Name:       m.name,
			Quantity:   quantity,
			Unit:       unit,
			Confidence: p.mentionConfidence(quantity, text),
			Notes:      mentionNotes(quantity, unit),
		})
	}
	return mentions
}

// quantityNear searches a fixed window before and after the product position
// for a numeric token. A quantity before the product wins, taking the token
// closest to it; only when none exists is the first token after the product
// used. The unit keyword is looked up across the whole window, independent
// of which side the quantity came from.
func (p *Parser) quantityNear(text string, pos int) (*float64, *string) {
	start := pos - p.quantityWindow
	if start < 0 {
		start = 0
	}
	end := pos + p.quantityWindow
	if end > len(text) {
		end = len(text)
	}
	before := text[start:pos]
	after := text[pos:end]

	if tokens := quantityPattern.FindAllStringSubmatch(before, -1); len(tokens) > 0 {
		return parseQuantity(tokens[len(tokens)-1][1]), unitIn(text[start:end])
	}
	if tokens := quantityPattern.FindAllStringSubmatch(after, -1); len(tokens) > 0 {
		return parseQuantity(tokens[0][1]), unitIn(text[start:end])
	}
	return nil, nil
}

func parseQuantity(token string) *float64 {
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return &value
}

// unitIn returns the canonical unit for the first unit keyword present in
// the window, or nil when none is recognizable.
func unitIn(window string) *string {
	for _, kw := range unitKeywords {
		if kw.pattern.MatchString(window) {
			unit := kw.unit
			return &unit
		}
	}
	return nil
}

// mentionConfidence scores one extraction: base 0.5, +0.3 for the literal
// catalog match, +0.2 when a quantity was found, +0.1 when the surrounding
// context is longer than 10 characters, capped at 1.0.
func (p *Parser) mentionConfidence(quantity *float64, context string) float64 {
	confidence := 0.5 + 0.3
	if quantity != nil {
		confidence += 0.2
	}
	if len(strings.TrimSpace(context)) > 10 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func mentionNotes(quantity *float64, unit *string) string {
	var notes []string
	if quantity == nil {
		notes = append(notes, "Quantity not specified")
	}
	if unit == nil {
		notes = append(notes, "Unit not specified")
	}
	if len(notes) == 0 {
		return "Complete information extracted"
	}
	return strings.Join(notes, "; ")
}

// extractUrgency classifies the first urgency keyword occurring in the text
// and returns that occurrence's tier. A high-tier keyword appearing later
// does not override an earlier lower-tier one; resolution follows textual
// order, not severity.
func (p *Parser) extractUrgency(content string) *string {
	match := urgencyPattern.FindString(content)
	if match == "" {
		return nil
	}

	keyword := strings.ToLower(match)
	level := entity.UrgencyLow
	switch {
	case highUrgency[keyword]:
		level = entity.UrgencyHigh
	case mediumUrgency[keyword]:
		level = entity.UrgencyMedium
	}
	return &level
}

// extractCurrency returns the first whitelisted 3-letter currency code in
// the text, normalized to uppercase.
func (p *Parser) extractCurrency(content string) *string {
	match := currencyPattern.FindString(content)
	if match == "" {
		return nil
	}
	code := strings.ToUpper(match)
	return &code
}

// DeriveGaps recomputes the gap list from sender and product extraction.
// It is a pure function of its inputs: gaps are never stored independently
// of the event fields they describe. Entries are not deduplicated; repeated
// causes produce repeated entries, once per offending mention.
func DeriveGaps(sender entity.Sender, products []entity.ProductMention) []string {
	gaps := []string{}

	if sender.Confidence < 0.7 {
		gaps = append(gaps, "Unclear sender information")
	}

	if len(products) == 0 {
		gaps = append(gaps, "No products identified")
		return gaps
	}

	for _, product := range products {
		if product.Quantity == nil {
			gaps = append(gaps, "Missing quantity for "+product.Name)
		}
		if product.Confidence < 0.6 {
			gaps = append(gaps, "Low confidence in "+product.Name+" extraction")
		}
	}

	return gaps
}
