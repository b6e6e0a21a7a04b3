package gmail

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/browser"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/poll"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/source"
)

const signInURL = "https://accounts.google.com/"

// Terminal account errors. Transient UI faults never cross the automaton
// boundary; they either recover or collapse into one of these.
var (
	ErrAccountDisabled = errors.New("account is disabled")
	ErrLoginTimeout    = errors.New("login did not resolve in time")
	ErrSendTimeout     = errors.New("send confirmation not detected")
)

const (
	// loadAttempts bounds the wait for the sign-in page itself.
	loadAttempts = 120
	// resolveAttempts bounds the post-password disambiguation loop. The
	// budget is generous: challenges and consent prompts can take a while
	// to appear and be typed through.
	resolveAttempts = 240

	selChallengeOption = "section ul li:nth-child(3)"
	selChallengeEmail  = "input[type=email]"
	selPassword        = "input[type=password]"
)

// Account drives one Gmail account through one browser session. Each
// account owns its session, profile directory, and debugging port, so
// accounts never share mutable state.
type Account struct {
	Credential source.Credential

	session        *browser.Session
	logger         *zap.Logger
	lastScreenshot string
}

// NewAccount binds a credential to a prepared (not yet started) session.
func NewAccount(cred source.Credential, session *browser.Session, logger *zap.Logger) *Account {
	return &Account{
		Credential: cred,
		session:    session,
		logger:     logger.Named("account").With(zap.String("account", cred.Email)),
	}
}

// Session exposes the underlying browser session.
func (a *Account) Session() *browser.Session { return a.session }

// LastScreenshot returns the diagnostic screenshot captured by the most
// recent failure, or empty.
func (a *Account) LastScreenshot() string { return a.lastScreenshot }

// Close tears the browser down. The profile directory stays on disk so
// the next login resumes the persisted session.
func (a *Account) Close() { a.session.Stop() }

// failure captures a diagnostic screenshot, logs the condition with the
// screenshot path, and returns err for the caller to record.
func (a *Account) failure(msg string, err error) error {
	path, shotErr := a.session.Screenshot()
	if shotErr != nil {
		a.logger.Error(msg, zap.Error(err), zap.NamedError("screenshot_error", shotErr))
		return err
	}
	a.lastScreenshot = path
	a.logger.Error(msg, zap.Error(err), zap.String("screenshot", path))
	return err
}

// classify reads the current page and maps it to a LoginState. Driver
// faults while reading are reported as StateUnknown so the surrounding
// poll just tries again.
func (a *Account) classify() LoginState {
	html, err := a.session.PageHTML()
	if err != nil {
		return StateUnknown
	}
	return ClassifyLogin(html)
}

// Login walks the sign-in flow: navigate, wait for either the credential
// prompt or an already-authenticated session, submit credentials, then
// poll through challenges and consent prompts until the account is
// authenticated, disabled, or the budget runs out.
func (a *Account) Login(ctx context.Context) error {
	if err := a.session.Navigate(signInURL); err != nil {
		return a.failure("cannot open sign-in page", err)
	}

	loaded := poll.Until(ctx, func() bool {
		switch a.classify() {
		case StateCredentialPrompt, StateAuthenticated, StateDisabled:
			return true
		}
		return false
	}, poll.Options{
		MaxAttempts: loadAttempts,
		Label:       "Waiting for sign-in page",
	})
	if !loaded {
		return a.failure("sign-in page never loaded", ErrLoginTimeout)
	}

	switch a.classify() {
	case StateAuthenticated:
		// Persisted profile still holds a valid session.
		a.logger.Info("already logged in, session resumed")
		return nil
	case StateDisabled:
		return a.failure("account is disabled", ErrAccountDisabled)
	}

	if err := a.session.Type(selIdentifier, a.Credential.Email, true); err != nil {
		return a.failure("cannot submit identifier", err)
	}
	if err := a.session.Type(selPassword, a.Credential.Password, true); err != nil {
		return a.failure("cannot submit password", err)
	}

	var terminal error
	resolved := poll.Until(ctx, func() bool {
		switch a.classify() {
		case StateDisabled:
			terminal = ErrAccountDisabled
			return true
		case StateChallenge:
			a.resolveChallenge()
		case StateDismissiblePrompt:
			// Dismiss failures are harmless here; the next iteration
			// re-reads the page.
			_, _ = a.session.ClickByText("button", dismissTexts...)
		case StateAuthenticated:
			return true
		}
		return false
	}, poll.Options{
		MaxAttempts: resolveAttempts,
		Label:       fmt.Sprintf("Waiting until %s is logged in", a.Credential.Email),
	})

	if terminal != nil {
		return a.failure("account is disabled", terminal)
	}
	if !resolved {
		return a.failure("login never resolved", ErrLoginTimeout)
	}

	a.logger.Info("logged in")
	return nil
}

// resolveChallenge answers the recovery-verification challenge: select
// the confirm-recovery-email option, then submit the recovery address.
// Errors are swallowed; the disambiguation poll re-classifies the page
// and tries again on the next iteration.
func (a *Account) resolveChallenge() {
	if err := a.session.Click(selChallengeOption); err != nil {
		return
	}
	_ = a.session.Type(selChallengeEmail, a.Credential.RecoveryEmail, true)
}
