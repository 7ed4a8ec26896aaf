package auth

import "time"

type Config struct {
	Secret    string        `env:"JWT_SECRET,required"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"biolink"`
	AdminRole string        `env:"JWT_ADMIN_ROLE" envDefault:"admin"`
	Leeway    time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`
}
