package domain

// Checkout metadata keys. They are the only channel that carries caller
// intent from checkout creation to the webhook.
const (
	MetadataPurpose       = "purpose"
	MetadataUserID        = "userId"
	MetadataUserType      = "userType"
	MetadataCategory      = "category"
	MetadataEmail         = "email"
	MetadataAttemptID     = "attemptId"
	MetadataPendingSignup = "pending_signup"
	MetadataLocalUserID   = "user_id"
)

const (
	PurposeVerification = "verification"
	PurposeSubscription = "subscription"
)
