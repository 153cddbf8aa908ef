package models

import "time"

// Poll statuses of GET /receive_unopened/{userId}.
const (
	PollStatusNewLetter = "new_letter_available"
	PollStatusCooldown  = "cooldown"
	PollStatusNoLetters = "no_new_letters"
)

// PollResponse is the reply of the unopened-letter endpoint. The letter
// fields are either inline or nested under "letter".
type PollResponse struct {
	Status                   string  `json:"status"`
	ID                       string  `json:"id,omitempty"`
	Title                    string  `json:"title,omitempty"`
	Content                  string  `json:"content,omitempty"`
	Message                  string  `json:"message,omitempty"`
	CooldownRemainingSeconds float64 `json:"cooldown_remaining_seconds,omitempty"`
	Letter                   *Letter `json:"letter,omitempty"`
}

// ArrivedLetter extracts the delivered letter, preferring the nested form.
func (r PollResponse) ArrivedLetter() Letter {
	if r.Letter != nil && r.Letter.ID != "" {
		return *r.Letter
	}
	return Letter{ID: r.ID, Title: r.Title, Content: firstNonEmpty(r.Content, r.Message)}
}

// CooldownRemaining converts the reported seconds to a duration.
func (r PollResponse) CooldownRemaining() time.Duration {
	if r.CooldownRemainingSeconds <= 0 {
		return 0
	}
	return time.Duration(r.CooldownRemainingSeconds * float64(time.Second))
}

// Cooldown is the server-enforced pause between deliveries, as last
// reported. It is never persisted.
type Cooldown struct {
	Active bool
	EndsAt time.Time
}

// Remaining returns the time left at now, never negative.
func (c Cooldown) Remaining(now time.Time) time.Duration {
	if !c.Active || !now.Before(c.EndsAt) {
		return 0
	}
	return c.EndsAt.Sub(now)
}

// Mark-opened statuses.
const (
	OpenStatusMarked          = "marked_opened_and_in_received"
	OpenStatusAlreadyReceived = "already_in_received"
)

// MarkOpenedResponse is the reply of POST /mark_letter_opened.
type MarkOpenedResponse struct {
	Status string  `json:"status"`
	Letter *Letter `json:"letter,omitempty"`
}

// Filed reports whether the server accepted the acknowledgement.
func (r MarkOpenedResponse) Filed() bool {
	return r.Status == OpenStatusMarked || r.Status == OpenStatusAlreadyReceived
}

// CheckUserResponse is the reply of POST /check_user.
type CheckUserResponse struct {
	IsNewUser bool              `json:"is_new_user"`
	Details   *CheckUserDetails `json:"details,omitempty"`
}

type CheckUserDetails struct {
	Preferences *Preferences `json:"preferences,omitempty"`
}

// UpdatePreferencesResponse is the reply of POST /update_preferences.
type UpdatePreferencesResponse struct {
	Status             string       `json:"status"`
	UpdatedPreferences *Preferences `json:"updated_preferences,omitempty"`
}

const PreferencesStatusUpdated = "preferences_updated"
