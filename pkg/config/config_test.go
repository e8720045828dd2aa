package config

import "testing"

func validConfig() *Config {
	c := &Config{Environment: "test"}
	c.Feed.Assets = []string{"BTC"}
	c.applyDefaults()
	return c
}

func TestValidateDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaultsExtremityBounds(t *testing.T) {
	c := validConfig()
	if c.Engine.BullishExtremity != 75 || c.Engine.BearishExtremity != 25 {
		t.Fatalf("unexpected extremity defaults %v/%v", c.Engine.BullishExtremity, c.Engine.BearishExtremity)
	}
}

func TestValidateRiskPctBounds(t *testing.T) {
	for _, v := range []float64{0.5, 6} {
		c := validConfig()
		c.Engine.RiskPct = v
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for risk_pct %v", v)
		}
	}
	c := validConfig()
	c.Engine.RiskPct = 5
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateExtremityOrdering(t *testing.T) {
	c := validConfig()
	c.Engine.BullishExtremity = 20
	c.Engine.BearishExtremity = 30
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for inverted extremity bounds")
	}
}
