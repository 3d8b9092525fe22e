package playbook

import (
	"errors"
	"testing"
)

func TestCatalog_Match(t *testing.T) {
	c := Default()

	pb, err := c.Match("Donate to water project", "Donate 0.0001 ETH")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if pb.Name != "donation" {
		t.Fatalf("expected donation, got %q", pb.Name)
	}

	pb, err = c.Match("Top up the community phone", "prepaid card for the field office")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if pb.Name != "phone-topup" {
		t.Fatalf("expected phone-topup, got %q", pb.Name)
	}

	if _, err := c.Match("Buy a yacht", "unbounded luxury"); !errors.Is(err, ErrNoPlaybook) {
		t.Fatalf("expected ErrNoPlaybook, got %v", err)
	}
}

func TestCatalog_Get(t *testing.T) {
	c := Default()

	if _, err := c.Get("donation"); err != nil {
		t.Fatalf("get donation: %v", err)
	}
	if _, err := c.Get("unknown"); !errors.Is(err, ErrNoPlaybook) {
		t.Fatalf("expected ErrNoPlaybook, got %v", err)
	}
}

// Every catalog entry must end with a resolvable payment address so the
// orchestrator can dispatch.
func TestDefault_EntriesResolveAddress(t *testing.T) {
	c := Default()

	for _, name := range c.Names() {
		pb, err := c.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if len(pb.Steps) == 0 {
			t.Fatalf("%s: empty playbook", name)
		}

		resolves := false
		for _, step := range pb.Steps {
			if (step.Op == OpRead || step.Op == OpAsk) && step.Into == "address" {
				resolves = true
			}
		}
		if !resolves {
			t.Fatalf("%s: no step resolves the payment address", name)
		}
	}
}
