package model

// Notification is the payload published to the dispatch queue. Delivery is
// best-effort: a task or auth operation never fails because of one.
type Notification struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
