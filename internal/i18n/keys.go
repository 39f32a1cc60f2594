// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound  = "user.not_found"
	KeyUserSuspended = "user.suspended"

	// Trades
	KeyTradeCreated        = "trade.created"
	KeyTradeNotFound       = "trade.not_found"
	KeyTradeNotParticipant = "trade.not_participant"
	KeyTradeSelfTrade      = "trade.self_trade"
	KeyTradeOfferUpdated   = "trade.offer_updated"
	KeyTradeProposed       = "trade.proposed"
	KeyTradeAgreed         = "trade.agreed"
	KeyTradeCompleted      = "trade.completed"
	KeyTradeCanceled       = "trade.canceled"
	KeyTradeRestored       = "trade.restored"
	KeyTradeDisputed       = "trade.disputed"

	// Reviews
	KeyReviewCreated       = "review.created"
	KeyReviewAlreadyExists = "review.already_exists"
	KeyReviewNotFound      = "review.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
