package gmail

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/browser"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/poll"
)

const mailboxURL = "https://mail.google.com/mail/u/0/"

// Gmail compose selectors. These are the stable-ish anchors the web UI
// exposes; anything finer-grained churns between rollouts.
const (
	selComposeTrigger = "div[role=navigation] > div:first-child div[style*=user-select]"
	selDialogClose    = "div[role=dialog] td > img:last-child"
	selRecipient      = "input[aria-haspopup=listbox]"
	selSubject        = "input[name=subjectbox]"
	selComposeBody    = "div[role=textbox]"
	selSendButton     = "div[role=button][aria-label*=Ctrl-Enter]"
	selAlert          = "div[role=alert]"

	sentToken = "sent"
)

const (
	mailboxAttempts = 120
	// confirmAttempts bounds the wait for the "sent" alert; at the default
	// interval this is on the order of a minute.
	confirmAttempts = 120

	bodySettleDelay = 2 * time.Second
)

// SendTask is one message to one recipient.
type SendTask struct {
	To      string
	Subject string
	Body    string // HTML fragment injected as the compose body
}

// SendEmail executes the compose-and-send protocol for one recipient.
// Precondition: Login succeeded on this account. A failed send is
// reported with a diagnostic screenshot; the caller decides whether to
// continue with further recipients (it should - one recipient's failure
// never aborts the rest).
func (a *Account) SendEmail(ctx context.Context, task SendTask) error {
	a.logger.Info("sending email", zap.String("recipient", task.To))

	if url, err := a.session.CurrentURL(); err != nil || !strings.HasPrefix(url, mailboxURL) {
		if err := a.session.Navigate(mailboxURL); err != nil {
			return a.failure("cannot open mailbox", err)
		}
	}

	ready := poll.Until(ctx, func() bool {
		return a.session.ElementCount(selComposeTrigger) > 0
	}, poll.Options{
		MaxAttempts: mailboxAttempts,
		Label:       "Waiting until mailbox loaded",
	})
	if !ready {
		return a.failure("mailbox never loaded", ErrSendTimeout)
	}

	a.dismissDialogs()

	if err := a.session.Click(selComposeTrigger); err != nil {
		return a.failure("cannot open compose window", err)
	}
	if err := a.session.Type(selRecipient, task.To, true); err != nil {
		return a.failure("cannot fill recipient", err)
	}
	if err := a.session.Type(selSubject, task.Subject, false); err != nil {
		return a.failure("cannot fill subject", err)
	}

	// The body is raw content replacement, not simulated typing: large
	// HTML payloads go in as one DOM write so Gmail renders them instead
	// of escaping them keystroke by keystroke.
	if _, err := a.session.FindWithWait(selComposeBody, browser.FindOptions{}); err != nil {
		return a.failure("compose body not found", err)
	}
	if err := a.session.SetInnerHTML(selComposeBody, task.Body); err != nil {
		return a.failure("cannot inject email body", err)
	}

	time.Sleep(bodySettleDelay)

	if err := a.session.Click(selSendButton); err != nil {
		return a.failure("cannot click send", err)
	}

	// Send initiated once the send control disappears.
	poll.Until(ctx, func() bool {
		return a.session.ElementCount(selSendButton) == 0
	}, poll.Options{
		MaxAttempts: mailboxAttempts,
		Label:       "Waiting for send to start",
	})

	confirmed := poll.Until(ctx, func() bool {
		if a.alertContainsSent() {
			return true
		}
		// The compose window sometimes reopens with the draft intact;
		// re-click send and keep waiting.
		if a.session.ElementCount(selSendButton) > 0 {
			_ = a.session.Click(selSendButton)
		}
		return false
	}, poll.Options{
		MaxAttempts: confirmAttempts,
		Label:       "Waiting until email sent",
	})
	if !confirmed {
		return a.failure("send confirmation never appeared", ErrSendTimeout)
	}

	a.logger.Info("email sent", zap.String("recipient", task.To))
	return nil
}

// dismissDialogs closes blocking modal dialogs until none remain. Gmail
// shows onboarding and feature dialogs over the mailbox at unpredictable
// times.
func (a *Account) dismissDialogs() {
	for a.session.ElementCount(selDialogClose) > 0 {
		if err := a.session.Click(selDialogClose); err != nil {
			return
		}
	}
}

func (a *Account) alertContainsSent() bool {
	texts, err := a.session.ReadTexts(selAlert)
	if err != nil {
		return false
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), sentToken) {
			return true
		}
	}
	return false
}
