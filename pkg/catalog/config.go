package catalog

// Config selects the catalog seed and, when Redis is enabled, its key.
type Config struct {
	PlansFile string `env:"PLANS_FILE"`
	RedisKey  string `env:"PLANS_REDIS_KEY" envDefault:"billing:plan_catalog"`
}
