package domain

// Client is a relying-party application from the identity provider's client catalog.
// It is read-only here and used only to address lifecycle notifications.
type Client struct {
	ClientID string `json:"id" dynamodbav:"client_id"`
	BaseURL  string `json:"base_url" dynamodbav:"base_url"`
	Enable   bool   `json:"enable" dynamodbav:"enable"`
}
