package domain

// Role names carried in bearer tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
