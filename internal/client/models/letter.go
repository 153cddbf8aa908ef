// Package models defines the client-side data model of bottlemail: letters,
// preferences, drafts and the server's delivery responses.
package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// UntitledTitle replaces blank letter titles.
const UntitledTitle = "Untitled"

// Letter is a message written by one user and delivered to another.
//
// At least one of the date fields is expected to be set; Timestamp picks the
// first one that parses. IsReceived is a client-only flag marking a letter
// that has arrived but is not filed in the letterbox yet.
type Letter struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	DateReceived string `json:"date_received,omitempty"`
	Date         string `json:"date,omitempty"`
	DateSent     string `json:"date_sent,omitempty"`

	IsReceived bool `json:"-"`
}

// wireLetter accepts the field spellings seen from different server
// revisions.
type wireLetter struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Message         string `json:"message"`
	DateReceived    string `json:"date_received"`
	DateReceivedAlt string `json:"dateReceived"`
	Date            string `json:"date"`
	DateSent        string `json:"date_sent"`
	DateSentAlt     string `json:"dateSent"`
}

func (l *Letter) UnmarshalJSON(b []byte) error {
	var w wireLetter
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = Letter{
		ID:           w.ID,
		Title:        w.Title,
		Content:      firstNonEmpty(w.Content, w.Message),
		DateReceived: firstNonEmpty(w.DateReceived, w.DateReceivedAlt),
		Date:         w.Date,
		DateSent:     firstNonEmpty(w.DateSent, w.DateSentAlt),
	}
	return nil
}

// NormalizeTitle returns the title, or UntitledTitle when it is blank.
func NormalizeTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return UntitledTitle
}

// DisplayTitle is the title shown to the user.
func (l Letter) DisplayTitle() string {
	return NormalizeTitle(l.Title)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp returns the first parseable of DateReceived, Date and DateSent.
// The zero time is returned when none parses.
func (l Letter) Timestamp() time.Time {
	for _, raw := range []string{l.DateReceived, l.Date, l.DateSent} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

// SortNewestFirst orders letters by Timestamp, newest first. Letters with the
// same timestamp are ordered by ID so the result is stable across runs.
func SortNewestFirst(letters []Letter) {
	sort.SliceStable(letters, func(i, j int) bool {
		ti, tj := letters[i].Timestamp(), letters[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return letters[i].ID < letters[j].ID
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
