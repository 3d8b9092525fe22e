package playbook

import (
	"fmt"
	"strings"
)

// Catalog is the immutable set of playbooks loaded at process start.
type Catalog struct {
	books []Playbook
}

// NewCatalog builds a catalog from the given playbooks. Order matters for
// Match: the first playbook with a keyword hit wins.
func NewCatalog(books ...Playbook) *Catalog {
	return &Catalog{books: books}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(
		Playbook{
			Name:     "donation",
			Keywords: []string{"donate", "donation", "charity"},
			Steps: []Step{
				{Op: OpNavigate, Target: "https://thegivingblock.com/donate/"},
				{Op: OpAct, Value: "open the donation form for the organization that matches: {{title}}"},
				{Op: OpAct, Value: "select Ethereum as the donation currency and enter {{amount}} as the amount"},
				{Op: OpWait, Value: "2s"},
				{Op: OpRead, Target: "[data-testid='deposit-address'], .deposit-address", Into: "address", OCRFallback: true},
			},
		},
		Playbook{
			Name:     "phone-topup",
			Keywords: []string{"top up", "topup", "top-up", "prepaid", "phone"},
			Steps: []Step{
				{Op: OpNavigate, Target: "https://www.bitrefill.com/buy/phone-refills"},
				{Op: OpFill, Target: "input[type='search']", Value: "{{recipient}}"},
				{Op: OpAct, Value: "pick the refill product for {{recipient}} and choose {{amount}} ETH worth of credit"},
				{Op: OpClick, Target: "button[data-testid='checkout']"},
				{Op: OpWait, Value: "2s"},
				{Op: OpRead, Target: ".payment-address code", Into: "address", OCRFallback: true},
			},
		},
	)
}

// Get returns the playbook with the given name.
func (c *Catalog) Get(name string) (Playbook, error) {
	for _, pb := range c.books {
		if pb.Name == name {
			return pb, nil
		}
	}
	return Playbook{}, fmt.Errorf("%w: %q", ErrNoPlaybook, name)
}

// Match selects the playbook whose keywords appear in the proposal's title
// or description.
func (c *Catalog) Match(title, description string) (Playbook, error) {
	haystack := strings.ToLower(title + " " + description)
	for _, pb := range c.books {
		for _, kw := range pb.Keywords {
			if strings.Contains(haystack, kw) {
				return pb, nil
			}
		}
	}
	return Playbook{}, fmt.Errorf("%w for %q", ErrNoPlaybook, title)
}

// Names lists the catalog entries in match order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.books))
	for _, pb := range c.books {
		out = append(out, pb.Name)
	}
	return out
}
