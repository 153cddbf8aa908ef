package models

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferences_Validate(t *testing.T) {
	tests := []struct {
		name    string
		prefs   Preferences
		wantErr bool
	}{
		{name: "empty", prefs: Preferences{}},
		{name: "emotion and custom", prefs: Preferences{Emotion: "joy", Custom: "letters about the sea"}},
		{name: "custom at limit", prefs: Preferences{Custom: strings.Repeat("あ", MaxCustomPreferenceLen)}},
		{name: "custom over limit", prefs: Preferences{Custom: strings.Repeat("a", MaxCustomPreferenceLen+1)}, wantErr: true},
		{name: "emotion over limit", prefs: Preferences{Emotion: strings.Repeat("e", MaxCustomPreferenceLen+1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prefs.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPreferences_NormalizedAndIsZero(t *testing.T) {
	p := Preferences{Emotion: " joy ", Custom: "  "}.Normalized()
	assert.Equal(t, Preferences{Emotion: "joy"}, p)
	assert.False(t, p.IsZero())
	assert.True(t, Preferences{}.IsZero())
}

func TestIsKnownEmotion(t *testing.T) {
	assert.True(t, IsKnownEmotion("Joy"))
	assert.True(t, IsKnownEmotion("other"))
	assert.False(t, IsKnownEmotion("boredom"))
}
