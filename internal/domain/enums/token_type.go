package enums

type TokenType string

const (
	TokenTypeEmailVerify       TokenType = "EMAIL_VERIFY"
	TokenTypePasswordReset     TokenType = "PASSWORD_RESET"
	TokenTypeDeactivateAccount TokenType = "DEACTIVATE_ACCOUNT"
	TokenTypeTelegramAuth      TokenType = "TELEGRAM_AUTH"
)
