package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/bottlemail/internal/common"
)

// MaxCustomPreferenceLen bounds the free-text preference, in runes.
const MaxCustomPreferenceLen = 100

// Emotion tags offered by the emotion wheel. The server accepts any short
// tag; these are the ones the client suggests.
var Emotions = []string{
	"joy", "trust", "fear", "surprise", "sadness", "disgust", "anger", "anticipation", "other",
}

// Preferences describe which letters a user would like to receive.
type Preferences struct {
	Emotion string `json:"emotion"`
	Custom  string `json:"custom"`
}

// IsZero reports whether no preference is set.
func (p Preferences) IsZero() bool {
	return p.Emotion == "" && p.Custom == ""
}

// Normalized trims surrounding whitespace from both fields.
func (p Preferences) Normalized() Preferences {
	return Preferences{Emotion: strings.TrimSpace(p.Emotion), Custom: strings.TrimSpace(p.Custom)}
}

// Validate checks length bounds. Errors wrap common.ErrValidation.
func (p Preferences) Validate() error {
	if n := utf8.RuneCountInString(p.Custom); n > MaxCustomPreferenceLen {
		return fmt.Errorf("%w: custom preference is %d characters, limit is %d", common.ErrValidation, n, MaxCustomPreferenceLen)
	}
	if n := utf8.RuneCountInString(p.Emotion); n > MaxCustomPreferenceLen {
		return fmt.Errorf("%w: emotion tag is %d characters, limit is %d", common.ErrValidation, n, MaxCustomPreferenceLen)
	}
	return nil
}

// IsKnownEmotion reports whether tag is one of Emotions.
func IsKnownEmotion(tag string) bool {
	for _, e := range Emotions {
		if strings.EqualFold(e, tag) {
			return true
		}
	}
	return false
}
