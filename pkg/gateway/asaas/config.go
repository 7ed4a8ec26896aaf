package asaas

import "time"

const (
	ProductionURL = "https://api.asaas.com/v3"
	SandboxURL    = "https://api-sandbox.asaas.com/v3"
)

// Config holds Asaas API settings.
type Config struct {
	APIKey        string        `env:"ASAAS_API_KEY,required"`
	BaseURL       string        `env:"ASAAS_BASE_URL" envDefault:"https://api-sandbox.asaas.com/v3"`
	WebhookSecret string        `env:"ASAAS_WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"ASAAS_TIMEOUT" envDefault:"15s"`
	// DueDays is how many days after today a charge is due.
	DueDays int `env:"ASAAS_DUE_DAYS" envDefault:"1"`
}
