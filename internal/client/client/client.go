package client

import (
	"context"

	"github.com/dmitrijs2005/bottlemail/internal/client/models"
)

// Client is the letter server API as used by the app.
type Client interface {
	BaseURL() string
	SetBaseURL(baseURL string)

	CheckUser(ctx context.Context, userID string) (*models.CheckUserResponse, error)
	Letterbox(ctx context.Context, userID string) ([]models.Letter, error)
	ReceiveUnopened(ctx context.Context, userID string) (*models.PollResponse, error)
	MarkOpened(ctx context.Context, userID, letterID string) (*models.MarkOpenedResponse, error)
	Send(ctx context.Context, letter models.OutgoingLetter) (*models.SendResponse, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (*models.UpdatePreferencesResponse, error)
}
