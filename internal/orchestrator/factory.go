package orchestrator

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/browser"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/config"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/gmail"
	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/source"
)

// BrowserFactory builds real Chrome-backed automatons. The profile
// directory is derived from the account's local-part so repeated logins
// reuse the persisted browser state.
func BrowserFactory(cfg *config.Config, logger *zap.Logger) Factory {
	return func(cred source.Credential, port int) (Automaton, error) {
		sessCfg := browser.DefaultConfig()
		sessCfg.Headless = cfg.Browser.Headless
		sessCfg.ScreenshotDir = cfg.Browser.ScreenshotDir

		profile, err := filepath.Abs(filepath.Join(cfg.Browser.ProfileDir, source.LocalPart(cred.Email)))
		if err != nil {
			return nil, err
		}

		sess := browser.NewSession(profile, port, sessCfg)
		if err := sess.Start(); err != nil {
			return nil, err
		}
		return gmail.NewAccount(cred, sess, logger), nil
	}
}
