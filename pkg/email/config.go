package email

// Config holds email sink configuration.
// Postmark tokens are optional so development environments can run with the
// DevSender instead. SenderEmail and SupportEmail establish the sender
// identity and reply-to behavior for all outbound notification emails.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
