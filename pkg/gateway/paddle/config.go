package paddle

// Config holds Paddle Billing settings. The gateway is enabled only when
// APIKey is set.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Sandbox       bool   `env:"PADDLE_SANDBOX" envDefault:"true"`
}

// Enabled reports whether Paddle credentials are configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}
