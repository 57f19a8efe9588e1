package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Item holds the catalog entry for one product.
type Item struct {
	Price float64 `json:"price"`
	Unit  string  `json:"unit"`
}

// PriceList maps product names to their catalog entries. Product names are
// matched against email text case-insensitively but stored verbatim.
type PriceList map[string]Item

// Names returns the catalog product names in a deterministic order.
func (pl PriceList) Names() []string {
	names := make([]string, 0, len(pl))
	for name := range pl {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the catalog carries the product.
func (pl PriceList) Has(name string) bool {
	_, ok := pl[name]
	return ok
}

// DiscountTier is one bracket of the volume discount table. The bracket is
// half-open: it applies when MinAmount <= subtotal < MaxAmount.
type DiscountTier struct {
	MinAmount float64 `json:"min_amount"`
	MaxAmount float64 `json:"max_amount"`
	Discount  float64 `json:"discount"`
}

// UnmarshalJSON defaults a missing or null max_amount to +Inf so the last
// tier of a rules file can be written open-ended.
func (t *DiscountTier) UnmarshalJSON(data []byte) error {
	aux := struct {
		MinAmount float64  `json:"min_amount"`
		MaxAmount *float64 `json:"max_amount"`
		Discount  float64  `json:"discount"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.MinAmount = aux.MinAmount
	t.Discount = aux.Discount
	if aux.MaxAmount == nil {
		t.MaxAmount = math.Inf(1)
	} else {
		t.MaxAmount = *aux.MaxAmount
	}
	return nil
}

// Contains reports whether the subtotal falls inside this tier.
func (t DiscountTier) Contains(subtotal float64) bool {
	return t.MinAmount <= subtotal && subtotal < t.MaxAmount
}

// discountRules is the on-disk shape of the discount rules file.
type discountRules struct {
	Tiers []DiscountTier `json:"tiers"`
}

// DefaultPriceList returns the built-in catalog used when no price list
// file is configured.
func DefaultPriceList() PriceList {
	return PriceList{
		"Widget Pro":     {Price: 25.00, Unit: "piece"},
		"Gadget Basic":   {Price: 15.50, Unit: "piece"},
		"Tool Kit":       {Price: 45.00, Unit: "kit"},
		"Premium Widget": {Price: 75.00, Unit: "piece"},
		"Bulk Pack":      {Price: 200.00, Unit: "pack"},
	}
}

// DefaultDiscountTiers returns the built-in four-tier discount table.
func DefaultDiscountTiers() []DiscountTier {
	return []DiscountTier{
		{MinAmount: 0, MaxAmount: 100, Discount: 0.05},
		{MinAmount: 100, MaxAmount: 500, Discount: 0.10},
		{MinAmount: 500, MaxAmount: 1000, Discount: 0.15},
		{MinAmount: 1000, MaxAmount: math.Inf(1), Discount: 0.20},
	}
}

// LoadPriceList reads a JSON price list file. An empty path or a missing
// file yields the built-in defaults.
func LoadPriceList(path string) (PriceList, error) {
	if path == "" {
		return DefaultPriceList(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPriceList(), nil
		}
		return nil, fmt.Errorf("failed to read price list: %w", err)
	}

	var pl PriceList
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("failed to parse price list: %w", err)
	}
	if len(pl) == 0 {
		return nil, fmt.Errorf("price list %s contains no products", path)
	}
	return pl, nil
}

// LoadDiscountTiers reads a JSON discount rules file. An empty path or a
// missing file yields the built-in defaults. Loaded tiers are validated.
func LoadDiscountTiers(path string) ([]DiscountTier, error) {
	if path == "" {
		return DefaultDiscountTiers(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDiscountTiers(), nil
		}
		return nil, fmt.Errorf("failed to read discount rules: %w", err)
	}

	var rules discountRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse discount rules: %w", err)
	}
	if err := ValidateTiers(rules.Tiers); err != nil {
		return nil, fmt.Errorf("invalid discount rules in %s: %w", path, err)
	}
	return rules.Tiers, nil
}

// ValidateTiers checks that the tiers start at zero, ascend contiguously and
// carry discounts in [0, 1]. Tier lookup is deterministic only when the
// table partitions the non-negative range without gaps.
func ValidateTiers(tiers []DiscountTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("discount table has no tiers")
	}
	if tiers[0].MinAmount != 0 {
		return fmt.Errorf("first tier must start at 0, got %.2f", tiers[0].MinAmount)
	}
	for i, tier := range tiers {
		if tier.MaxAmount <= tier.MinAmount {
			return fmt.Errorf("tier %d has empty range [%.2f, %.2f)", i, tier.MinAmount, tier.MaxAmount)
		}
		if tier.Discount < 0 || tier.Discount > 1 {
			return fmt.Errorf("tier %d discount %.2f outside [0, 1]", i, tier.Discount)
		}
		if i > 0 && tier.MinAmount != tiers[i-1].MaxAmount {
			return fmt.Errorf("tier %d starts at %.2f but previous tier ends at %.2f",
				i, tier.MinAmount, tiers[i-1].MaxAmount)
		}
	}
	return nil
}
