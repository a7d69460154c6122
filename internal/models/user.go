package models

// Buyer identifies the chat a cart belongs to.
type Buyer struct {
	ChatID    int64  `json:"chat_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// DisplayName prefers @username over the first name.
func (b Buyer) DisplayName() string {
	if b.Username != "" {
		return "@" + b.Username
	}
	if b.FirstName != "" {
		return b.FirstName
	}
	return "покупатель"
}
