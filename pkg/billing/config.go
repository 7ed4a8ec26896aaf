package billing

import "time"

// Config holds billing settings loaded from the environment.
type Config struct {
	// Gateway names the processor used for checkout.
	Gateway  string        `env:"BILLING_GATEWAY" envDefault:"asaas"`
	Currency string        `env:"BILLING_CURRENCY" envDefault:"BRL"`
	Period   time.Duration `env:"BILLING_PERIOD" envDefault:"720h"`

	// RequireSignature rejects webhook deliveries that carry no signature.
	// Processor sandboxes often omit it, so it defaults to off.
	RequireSignature bool `env:"WEBHOOK_REQUIRE_SIGNATURE" envDefault:"false"`

	// A webhook can arrive before the checkout insert commits; the payment
	// lookup is retried this many times before the event is acknowledged
	// as unknown.
	LookupAttempts int           `env:"WEBHOOK_LOOKUP_ATTEMPTS" envDefault:"3"`
	LookupInterval time.Duration `env:"WEBHOOK_LOOKUP_INTERVAL" envDefault:"200ms"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		Gateway:        "asaas",
		Currency:       "BRL",
		Period:         30 * 24 * time.Hour,
		LookupAttempts: 3,
		LookupInterval: 200 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.Period <= 0 {
		c.Period = d.Period
	}
	if c.LookupAttempts < 1 {
		c.LookupAttempts = 1
	}
	if c.LookupInterval < 0 {
		c.LookupInterval = 0
	}
	return c
}
