package gmail

import "testing"

const (
	snapCredential = `<html><body>
		<form><input type="email" name="identifier" autofocus></form>
	</body></html>`

	snapChallenge = `<html><body>
		<form><input type="hidden" name="challengeListId" value="3">
		<section><ul><li>Tap yes</li><li>Use phone</li><li>Confirm recovery email</li></ul></section>
		</form>
	</body></html>`

	snapDismissEN = `<html><body>
		<div aria-live="polite">Simplify your sign-in</div>
		<div role="dialog"><button>Not now</button><button>Yes</button></div>
	</body></html>`

	snapDismissFR = `<html><body>
		<div aria-live="polite">Simplifiez votre connexion</div>
		<div role="dialog"><button>Pas maintenant</button><button>Oui</button></div>
	</body></html>`

	snapAuthenticated = `<html><body>
		<nav><a href="personal-info">Personal info</a></nav>
		<h1>Welcome</h1>
	</body></html>`

	snapDisabled = `<html><body>
		<h1 id="headingText"><span>Your account has been disabled</span></h1>
	</body></html>`

	snapInterstitial = `<html><body>
		<div class="spinner">Loading...</div>
	</body></html>`
)

func TestClassifyLogin(t *testing.T) {
	tests := []struct {
		name string
		html string
		want LoginState
	}{
		{name: "credential prompt", html: snapCredential, want: StateCredentialPrompt},
		{name: "challenge list", html: snapChallenge, want: StateChallenge},
		{name: "dismissible prompt english", html: snapDismissEN, want: StateDismissiblePrompt},
		{name: "dismissible prompt french", html: snapDismissFR, want: StateDismissiblePrompt},
		{name: "authenticated", html: snapAuthenticated, want: StateAuthenticated},
		{name: "disabled banner", html: snapDisabled, want: StateDisabled},
		{name: "interstitial", html: snapInterstitial, want: StateUnknown},
		{name: "empty page", html: "", want: StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLogin(tt.html); got != tt.want {
				t.Errorf("ClassifyLogin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyLoginPrecedence(t *testing.T) {
	tests := []struct {
		name string
		html string
		want LoginState
	}{
		{
			// A disabled banner alongside an identifier field still reads
			// as disabled.
			name: "disabled beats credential prompt",
			html: `<html><body>
				<h1 id="headingText">Your account has been disabled</h1>
				<input name="identifier">
			</body></html>`,
			want: StateDisabled,
		},
		{
			name: "challenge beats dismissible",
			html: `<html><body>
				<input type="hidden" name="challengeListId" value="1">
				<div aria-live="polite">prompt</div><button>Not now</button>
			</body></html>`,
			want: StateChallenge,
		},
		{
			name: "dismissible beats authenticated",
			html: `<html><body>
				<a href="personal-info">Personal info</a>
				<div aria-live="polite">prompt</div><button>Not now</button>
			</body></html>`,
			want: StateDismissiblePrompt,
		},
		{
			// A live region with no recognized dismiss button is not a
			// dismissible prompt.
			name: "live region without dismiss button",
			html: `<html><body>
				<div aria-live="polite">Checking your account</div>
				<a href="personal-info">Personal info</a>
			</body></html>`,
			want: StateAuthenticated,
		},
		{
			// A heading that exists but says something else must not
			// trigger the disabled state.
			name: "heading without disabled text",
			html: `<html><body>
				<h1 id="headingText">Verify it's you</h1>
				<input name="identifier">
			</body></html>`,
			want: StateCredentialPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLogin(tt.html); got != tt.want {
				t.Errorf("ClassifyLogin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoginStateString(t *testing.T) {
	tests := []struct {
		state LoginState
		want  string
	}{
		{StateUnknown, "unknown"},
		{StateCredentialPrompt, "credential_prompt"},
		{StateChallenge, "challenge"},
		{StateDismissiblePrompt, "dismissible_prompt"},
		{StateAuthenticated, "authenticated"},
		{StateDisabled, "disabled"},
		{LoginState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("LoginState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
