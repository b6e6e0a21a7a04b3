// Package gmail implements the per-account login and send state machine
// driven through the Gmail web UI.
package gmail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoginState is the recognized condition of the sign-in flow, produced by
// classifying the current DOM. Exactly one state is reported per page;
// precedence is fixed so overlapping markers resolve deterministically.
type LoginState int

const (
	// StateUnknown means no recognized marker is present yet; callers keep
	// polling.
	StateUnknown LoginState = iota
	// StateCredentialPrompt means the identifier field is shown (fresh login).
	StateCredentialPrompt
	// StateChallenge means the recovery-verification challenge list is shown.
	StateChallenge
	// StateDismissiblePrompt means a "not now"-style dialog is blocking.
	StateDismissiblePrompt
	// StateAuthenticated means the account home marker is present.
	StateAuthenticated
	// StateDisabled means the account-disabled banner is shown. Terminal.
	StateDisabled
)

func (s LoginState) String() string {
	switch s {
	case StateCredentialPrompt:
		return "credential_prompt"
	case StateChallenge:
		return "challenge"
	case StateDismissiblePrompt:
		return "dismissible_prompt"
	case StateAuthenticated:
		return "authenticated"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

const (
	selDisabledBanner = "#headingText"
	selChallengeList  = "input[name=challengeListId]"
	selLivePrompt     = "div[aria-live=polite]"
	selAccountHome    = "a[href=personal-info]"
	selIdentifier     = "[name=identifier]"

	disabledBannerText = "your account has been disabled"
)

// dismissTexts are the candidate labels of the dismiss button, tried in
// order. One case with multiple locales, not one branch per locale - the
// prompt shows whichever language the account is set to.
var dismissTexts = []string{"not now", "pas maintenant"}

// ClassifyLogin maps a rendered sign-in page to its LoginState. It is a
// pure function over HTML so the state machine can be exercised against
// captured DOM snapshots without a browser.
//
// Check order is significant: the disabled banner wins over everything,
// then the challenge, then dismissible prompts, then the authenticated
// marker, and only then a fresh credential prompt.
func ClassifyLogin(html string) LoginState {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return StateUnknown
	}

	banner := doc.Find(selDisabledBanner)
	if banner.Length() > 0 &&
		strings.Contains(strings.ToLower(banner.Text()), disabledBannerText) {
		return StateDisabled
	}

	if doc.Find(selChallengeList).Length() > 0 {
		return StateChallenge
	}

	if prompt := doc.Find(selLivePrompt); prompt.Length() > 0 && hasDismissButton(doc) {
		return StateDismissiblePrompt
	}

	if doc.Find(selAccountHome).Length() > 0 {
		return StateAuthenticated
	}

	if doc.Find(selIdentifier).Length() > 0 {
		return StateCredentialPrompt
	}

	return StateUnknown
}

func hasDismissButton(doc *goquery.Document) bool {
	found := false
	doc.Find("button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(sel.Text())
		for _, want := range dismissTexts {
			if strings.Contains(text, want) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
