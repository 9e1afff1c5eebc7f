package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldEnable       = "enable"
	fieldDeletedAt    = "deleted_at"
	fieldUpdatedAt    = "updated_at"
	fieldSendAttempts = "send_attempts"
	fieldArchived     = "archived"
)
