package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/client/services"
)

func (a *App) Status(ctx context.Context) error {
	s := a.session

	id := s.UserID()
	if s.Identity.Degraded() {
		id += " (temporary id, server sync disabled)"
	}
	printlnFn("User:      ", id)

	server := s.Client.BaseURL()
	if server == "" {
		server = "(not set)"
	}
	printlnFn("Server:    ", server)
	printlnFn("Delivery:  ", s.Delivery.State())

	if l, ok := s.Delivery.Pending(); ok {
		printlnFn("Arrival:   ", l.DisplayTitle())
	} else if cd := s.Delivery.Cooldown(); cd.Active {
		printlnFn("Next bottle in", cd.Remaining(time.Now()).Round(time.Second))
	}

	printlnFn("Letterbox: ", s.Letterbox.Len(), "letter(s)")
	if s.Draft.Content != "" {
		printlnFn("Draft:     ", models.NormalizeTitle(s.Draft.Title))
	}
	return nil
}

func (a *App) Write(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "- Enter title (blank for \"Untitled\")", a.out)
	if err != nil {
		a.logger.Warn(ctx, "reading title", "error", err)
		return err
	}

	content, err := GetMultiline(a.reader, "- Enter your letter:", a.out)
	if err != nil {
		a.logger.Warn(ctx, "reading letter", "error", err)
		return err
	}

	a.session.Draft.Title = title
	a.session.Draft.Content = content
	printlnFn("Draft saved. Type 'send' to put it in a bottle.")
	return nil
}

func (a *App) Send(ctx context.Context) error {
	res := a.session.Sender.Send(ctx, a.session.UserID(), a.session.Draft)

	switch res.Outcome {
	case services.SendSuccess:
		printlnFn("Your letter is floating out to sea.")
	case services.SendValidationFailed:
		printlnFn("Nothing to send: write a letter first.")
	case services.SendTimeout:
		printlnFn("The server took too long to answer; your draft is kept.")
	case services.SendNetworkError:
		printlnFn("Could not reach the server; your draft is kept.")
	case services.SendServerRejected:
		msg := "The server did not accept the letter"
		if res.Detail != "" {
			msg += ": " + res.Detail
		}
		printlnFn(msg)
	case services.SendBusy:
		printlnFn("A letter is already being sent.")
	}
	return res.Err
}

func (a *App) Check(ctx context.Context) error {
	res := a.session.Delivery.Poll(ctx)

	switch {
	case res.Skipped == services.SkipArrivalPending:
		printlnFn("A letter is already waiting for you. Type 'open' to read it.")
	case res.Skipped != "":
		printlnFn("Not checking:", res.Skipped)
	case res.State == services.DeliveryCooldown:
		printlnFn("The sea is calm. Next bottle in", res.Cooldown.Remaining(time.Now()).Round(time.Second))
	case res.State == services.DeliveryEmpty:
		printlnFn("No new letters.")
	case res.State == services.DeliveryError:
		printlnFn("Could not check for letters:", res.Err)
	}
	// arrivals are announced by the OnArrival callback
	return res.Err
}

func (a *App) Tap(ctx context.Context) error {
	left, err := a.session.Opener.Tap()
	if err != nil {
		printlnFn(describe(err))
		return err
	}
	if left > 0 {
		printlnFn(fmt.Sprintf("Tap... (%d more)", left))
		return nil
	}
	if l, ok := a.session.Opener.Current(); ok {
		printLetter(l)
		printlnFn("Type 'ack' to keep it in your letterbox.")
	}
	return nil
}

func (a *App) Open(ctx context.Context) error {
	l, err := a.session.Opener.OpenArrival()
	if err != nil {
		printlnFn(describe(err))
		return err
	}
	printLetter(l)
	printlnFn("Type 'ack' to keep it in your letterbox.")
	return nil
}

func (a *App) Ack(ctx context.Context) error {
	l, err := a.session.Opener.Acknowledge(ctx)
	if err != nil {
		printlnFn(describe(err))
		return err
	}
	printlnFn(fmt.Sprintf("%q is now in your letterbox.", l.DisplayTitle()))
	return nil
}

func (a *App) List(ctx context.Context) error {
	letters := a.session.Letterbox.Sorted()
	if len(letters) == 0 {
		printlnFn("Your letterbox is empty.")
		return nil
	}
	for i, l := range letters {
		printlnFn(fmt.Sprintf("%2d. %-10s %s  [%s]", i+1, letterDate(l), l.DisplayTitle(), l.ID))
	}
	return nil
}

// Read opens a filed letter by its list position or id.
func (a *App) Read(ctx context.Context, arg string) error {
	if arg == "" {
		printlnFn("Usage: read <n|id>")
		return errors.New("missing letter reference")
	}

	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		letters := a.session.Letterbox.Sorted()
		if n >= 1 && n <= len(letters) {
			id = letters[n-1].ID
		}
	}

	l, err := a.session.Opener.OpenFiled(id)
	if err != nil {
		printlnFn("No such letter:", arg)
		return err
	}
	printLetter(l)
	return nil
}

func (a *App) Close(ctx context.Context) error {
	a.session.Opener.CloseFiled()
	return nil
}

func (a *App) Prefs(ctx context.Context) error {
	p := a.session.Preferences.Current()
	if p.IsZero() {
		printlnFn("No preferences set. Type 'setprefs' to choose.")
		return nil
	}
	printlnFn("Emotion:", valueOr(p.Emotion, "-"))
	printlnFn("Wish:   ", valueOr(p.Custom, "-"))
	return nil
}

func (a *App) SetPrefs(ctx context.Context) error {
	cur := a.session.Preferences.Current()

	printlnFn("Emotion wheel:")
	for i, e := range models.Emotions {
		printlnFn(fmt.Sprintf("  %d. %s", i+1, e))
	}
	choice, err := GetSimpleText(a.reader, "- Pick an emotion (number or name, blank keeps "+valueOr(cur.Emotion, "none")+")", a.out)
	if err != nil {
		return err
	}
	emotion, err := pickEmotion(choice, cur.Emotion)
	if err != nil {
		printlnFn(err)
		return err
	}

	custom, err := GetSimpleText(a.reader, fmt.Sprintf("- What would you like to read about? (max %d characters, blank keeps current)", models.MaxCustomPreferenceLen), a.out)
	if err != nil {
		return err
	}
	if custom == "" {
		custom = cur.Custom
	}

	resp, err := a.session.Preferences.Save(ctx, models.Preferences{Emotion: emotion, Custom: custom})
	switch {
	case err == nil && resp == nil:
		printlnFn("Preferences saved on this device.")
	case err == nil:
		printlnFn("Preferences saved.")
	default:
		printlnFn("Preferences saved locally, but:", describe(err))
	}
	return err
}

// pickEmotion resolves a wheel choice: a 1-based number, a tag or blank for
// the current value.
func pickEmotion(choice, current string) (string, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return current, nil
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(models.Emotions) {
			return "", fmt.Errorf("choose a number between 1 and %d", len(models.Emotions))
		}
		return models.Emotions[n-1], nil
	}
	if models.IsKnownEmotion(choice) {
		return strings.ToLower(choice), nil
	}
	return "", fmt.Errorf("unknown emotion %q", choice)
}

func (a *App) Server(ctx context.Context, arg string) error {
	if arg == "" {
		printlnFn("Server:", valueOr(a.session.Client.BaseURL(), "(not set)"))
		return nil
	}

	u, err := url.Parse(arg)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		printlnFn("Expected an address like http://host:8000")
		return fmt.Errorf("invalid server address %q", arg)
	}

	a.session.SetServer(arg)
	a.restartPoller()
	printlnFn("Server set to", a.session.Client.BaseURL())
	return nil
}

func printLetter(l models.Letter) {
	printlnFn("~~", l.DisplayTitle(), "~~")
	if d := letterDate(l); d != "" {
		printlnFn(d)
	}
	printlnFn(l.Content)
}

func letterDate(l models.Letter) string {
	ts := l.Timestamp()
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02")
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// describe turns workflow and transport errors into user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, services.ErrNoArrival):
		return "No letter has arrived yet."
	case errors.Is(err, services.ErrArrivalNotOpened):
		return "Open the letter first ('tap' or 'open')."
	case errors.Is(err, services.ErrBusy):
		return "Still working on the previous request."
	case errors.Is(err, client.ErrTimeout):
		return "The server took too long to answer. Try again."
	case errors.Is(err, client.ErrUnavailable), errors.Is(err, client.ErrNoServer):
		return "Could not reach the server. Try again."
	case errors.Is(err, client.ErrServerRejected):
		if d := client.Detail(err); d != "" {
			return "The server refused: " + d
		}
		return "The server refused the request."
	default:
		return err.Error()
	}
}
