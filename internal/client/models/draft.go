package models

// Draft is a letter being composed. It is cleared only after a successful
// send.
type Draft struct {
	Title   string
	Content string
}

func (d *Draft) Clear() {
	d.Title = ""
	d.Content = ""
}

// OutgoingLetter is the body of POST /send.
type OutgoingLetter struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SendResponse is the reply of POST /send.
type SendResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	SendStatusReceived      = "received"
	SendStatusReceivedSaved = "received_and_saved"
)

// Accepted reports whether the server confirmed receipt.
func (r SendResponse) Accepted() bool {
	return r.Status == SendStatusReceived || r.Status == SendStatusReceivedSaved
}
