package email

// Config holds outbound email settings. Without a Postmark server token
// messages are written to the log instead of being sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	From                 string `env:"EMAIL_FROM" envDefault:"billing@biolink.local"`
	ReplyTo              string `env:"EMAIL_REPLY_TO" envDefault:"support@biolink.local"`
	OperatorsTo          string `env:"EMAIL_OPERATORS_TO" envDefault:"ops@biolink.local"`
}
