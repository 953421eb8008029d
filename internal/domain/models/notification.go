package models

// Notification is the payload handed to the external dispatcher. ConfirmURL
// and DenyURL are feedback callback links encoding the prediction and the 10
// raw feature values.
type Notification struct {
	Instrument     string           `json:"instrument"`
	Prediction     PredictionResult `json:"prediction"`
	RecipientEmail string           `json:"recipient_email"`
	RecipientName  string           `json:"recipient_name"`
	ConfirmURL     string           `json:"confirm_url"`
	DenyURL        string           `json:"deny_url"`
}
