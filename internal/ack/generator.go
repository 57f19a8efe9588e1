package ack

import (
	"fmt"
	"strings"
	"time"

	"github.com/acmecorp/quote-workflow/internal/domain/entity"
)

// maxQuestions caps how many clarifying questions one acknowledgment asks.
const maxQuestions = 2

// Config holds the company identity and service-level parameters rendered
// into every acknowledgment.
type Config struct {
	CompanyName  string
	ContactEmail string
	SLAHours     int
}

// Generator drafts acknowledgment replies from parsed inquiry events.
// It is a pure templating component keyed off extractor output.
type Generator struct {
	cfg Config
}

// NewGenerator creates an acknowledgment generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Generate builds the acknowledgment record for one parsed event.
func (g *Generator) Generate(event *entity.ParsedEvent) *entity.Acknowledgment {
	return &entity.Acknowledgment{
		EmailID:      event.EmailID,
		Timestamp:    time.Now(),
		To:           event.Sender.Email,
		Subject:      g.subject(event.Products, event.Urgency),
		Greeting:     g.greeting(event.Sender),
		Body:         g.body(event),
		Questions:    g.questions(event.Gaps, event.Products),
		Closing:      g.closing(),
		SLAHours:     g.cfg.SLAHours,
		UrgencyLevel: event.Urgency,
	}
}

func (g *Generator) subject(products []entity.ProductMention, urgency *string) string {
	var subject string
	switch len(products) {
	case 0:
		return "Re: Your Inquiry - Additional Information Needed"
	case 1:
		subject = fmt.Sprintf("Re: %s Quote Request", products[0].Name)
	case 2:
		subject = fmt.Sprintf("Re: %s and %s Quote Request", products[0].Name, products[1].Name)
	default:
		subject = fmt.Sprintf("Re: Quote Request for %d Items", len(products))
	}

	if urgency != nil {
		switch *urgency {
		case entity.UrgencyHigh:
			subject += " - URGENT"
		case entity.UrgencyMedium:
			subject += " - Priority"
		}
	}
	return subject
}

func (g *Generator) greeting(sender entity.Sender) string {
	if sender.Name != "" && sender.Name != entity.SenderNameUnknown {
		return fmt.Sprintf("Dear %s,", sender.Name)
	}
	return "Dear Valued Customer,"
}

func (g *Generator) body(event *entity.ParsedEvent) string {
	parts := []string{g.thanks(event.Urgency)}

	if len(event.Products) > 0 {
		parts = append(parts, g.referenceProducts(event.Products))
	}

	if len(event.Gaps) > 0 {
		parts = append(parts, g.addressGaps(event.Gaps))
	} else {
		parts = append(parts, "We have all the necessary information to prepare your quote.")
	}

	parts = append(parts, g.nextSteps(event.Urgency))
	return strings.Join(parts, "\n\n")
}

func (g *Generator) thanks(urgency *string) string {
	if urgency != nil {
		switch *urgency {
		case entity.UrgencyHigh:
			return "Thank you for your urgent inquiry. We understand the time-sensitive nature of your request and will prioritize your quote accordingly."
		case entity.UrgencyMedium:
			return "Thank you for your inquiry. We appreciate your interest in our products and will process your request promptly."
		}
	}
	return fmt.Sprintf("Thank you for your inquiry. We appreciate your interest in %s products.", g.cfg.CompanyName)
}

func (g *Generator) referenceProducts(products []entity.ProductMention) string {
	if len(products) == 1 {
		product := products[0]
		if product.Quantity != nil {
			return fmt.Sprintf("We have received your request for %g %s.", *product.Quantity, product.Name)
		}
		return fmt.Sprintf("We have received your inquiry about %s.", product.Name)
	}

	names := make([]string, len(products))
	for i, product := range products {
		names[i] = product.Name
	}
	return fmt.Sprintf("We have received your inquiry about the following products: %s.", strings.Join(names, ", "))
}

func (g *Generator) addressGaps(gaps []string) string {
	if len(gaps) == 1 {
		return fmt.Sprintf("To provide you with an accurate quote, we need some additional information: %s", strings.ToLower(gaps[0]))
	}
	return "To provide you with an accurate quote, we need some additional information about your requirements."
}

func (g *Generator) nextSteps(urgency *string) string {
	hours := g.cfg.SLAHours
	if urgency != nil && *urgency == entity.UrgencyHigh {
		hours = hours / 2
	}
	return fmt.Sprintf("We will provide your quote within %d hours. If you have any questions, please don't hesitate to contact us at %s.",
		hours, g.cfg.ContactEmail)
}

// questions derives at most two clarifying questions from the gap list,
// preferring specific gaps over generic follow-ups.
func (g *Generator) questions(gaps []string, products []entity.ProductMention) []string {
	questions := []string{}

	for _, gap := range gaps {
		if len(questions) >= maxQuestions {
			break
		}
		lowered := strings.ToLower(gap)

		switch {
		case strings.Contains(lowered, "quantity"):
			for _, product := range products {
				if product.Quantity == nil {
					questions = append(questions, fmt.Sprintf("What quantity of %s do you need?", product.Name))
					break
				}
			}
		case strings.Contains(lowered, "product") && strings.Contains(lowered, "unrecognized"):
			questions = append(questions, "Could you please provide more details about the specific products you're interested in?")
		case strings.Contains(lowered, "sender"):
			questions = append(questions, "Could you please confirm your contact information for our records?")
		}
	}

	if len(questions) == 0 {
		if len(products) == 0 {
			questions = append(questions, "What products are you interested in purchasing?")
		}
		if len(questions) < maxQuestions {
			questions = append(questions, "Do you have any specific delivery requirements or timeline preferences?")
		}
	}

	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}
	return questions
}

func (g *Generator) closing() string {
	return fmt.Sprintf("Best regards,\n\n%s Sales Team\n%s", g.cfg.CompanyName, g.cfg.ContactEmail)
}
