package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/retry"
)

const clickSettleDelay = time.Second

// jsString renders s as a JS string literal, safe for interpolation into
// Evaluate expressions.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// transient classifies a chromedp interaction error. Everything the
// driver reports mid-interaction (missing node, detached node, blocked
// click, expired wait) is recoverable by retrying; a cancelled session
// context is not.
func (s *Session) transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSessionClosed) {
		return err
	}
	return retry.Transient(err)
}

// Type clears the field matched by selector, types text, and optionally
// submits with Enter. Uses simulated keystrokes so the page's own input
// handling (validation, autocomplete) fires. Retried on transient faults.
func (s *Session) Type(selector, text string, pressEnter bool) error {
	return retry.Do(func() error {
		if s.ctx == nil {
			return ErrSessionClosed
		}
		ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
		defer cancel()

		keys := text
		if pressEnter {
			keys += kb.Enter
		}
		err := chromedp.Run(ctx,
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Clear(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, keys, chromedp.ByQuery),
		)
		return s.transient(err)
	}, retry.Options{})
}

// Click scrolls the first match to viewport center, pauses briefly so the
// layout settles, then clicks it. Retried on transient faults.
func (s *Session) Click(selector string) error {
	return retry.Do(func() error {
		if s.ctx == nil {
			return ErrSessionClosed
		}
		ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
		defer cancel()

		scroll := fmt.Sprintf(
			`document.querySelector(%s).scrollIntoView({block: 'center'})`,
			jsString(selector))
		err := chromedp.Run(ctx,
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Evaluate(scroll, nil),
			chromedp.Sleep(clickSettleDelay),
			chromedp.Click(selector, chromedp.ByQuery),
		)
		return s.transient(err)
	}, retry.Options{})
}

// ClickByText finds the first element matching selector whose rendered
// text contains any of the candidate strings (case-insensitive) and
// clicks it in page JS. Returns false when no candidate matched; that is
// a valid probe outcome, not an error.
func (s *Session) ClickByText(selector string, candidates ...string) (bool, error) {
	if s.ctx == nil {
		return false, ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	wanted, _ := json.Marshal(candidates)
	js := fmt.Sprintf(`(function() {
		var wanted = %s.map(function(t) { return t.toLowerCase(); });
		var els = document.querySelectorAll(%s);
		for (var i = 0; i < els.length; i++) {
			var text = (els[i].innerText || '').toLowerCase();
			for (var j = 0; j < wanted.length; j++) {
				if (text.indexOf(wanted[j]) !== -1 && els[i].offsetParent !== null) {
					els[i].scrollIntoView({block: 'center'});
					els[i].click();
					return true;
				}
			}
		}
		return false;
	})()`, string(wanted), jsString(selector))

	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return false, s.transient(err)
	}
	return clicked, nil
}

// ReadText returns the rendered text of the first match. Retried on
// transient faults.
func (s *Session) ReadText(selector string) (string, error) {
	var text string
	err := retry.Do(func() error {
		if s.ctx == nil {
			return ErrSessionClosed
		}
		ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
		defer cancel()

		js := fmt.Sprintf(`(function() {
			var el = document.querySelector(%s);
			if (el === null) { return null; }
			return el.innerText;
		})()`, jsString(selector))

		var result *string
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &result)); err != nil {
			return s.transient(err)
		}
		if result == nil {
			return retry.Transientf("no element matches %s", selector)
		}
		text = *result
		return nil
	}, retry.Options{})
	return text, err
}

// ReadTexts returns the rendered text of every match.
func (s *Session) ReadTexts(selector string) ([]string, error) {
	var texts []string
	err := retry.Do(func() error {
		if s.ctx == nil {
			return ErrSessionClosed
		}
		ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
		defer cancel()

		js := fmt.Sprintf(`Array.prototype.map.call(
			document.querySelectorAll(%s),
			function(el) { return el.innerText; })`, jsString(selector))

		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &texts)); err != nil {
			return s.transient(err)
		}
		return nil
	}, retry.Options{})
	return texts, err
}

// SetInnerHTML replaces the rendered content of the first match with raw
// HTML, bypassing input simulation. Recipient and subject fields use
// Type so Gmail's own handlers fire; the compose body uses this so large
// HTML payloads are not typed character by character.
func (s *Session) SetInnerHTML(selector, html string) error {
	if s.ctx == nil {
		return ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	js := fmt.Sprintf(`(function() {
		var el = document.querySelector(%s);
		if (el === null) { return false; }
		el.innerHTML = %s;
		return true;
	})()`, jsString(selector), jsString(html))

	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return s.transient(err)
	}
	if !ok {
		return retry.Transientf("no element matches %s", selector)
	}
	return nil
}

const screenshotNameLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Screenshot captures the page into the screenshot directory using a
// timestamp plus a short random suffix, and returns the absolute path.
func (s *Session) Screenshot() (string, error) {
	if s.ctx == nil {
		return "", ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.config.ScreenshotDir, 0755); err != nil {
		return "", err
	}

	name := time.Now().Format("020120061504")
	for i := 0; i < 5; i++ {
		name += string(screenshotNameLetters[rand.Intn(len(screenshotNameLetters))])
	}

	path, err := filepath.Abs(filepath.Join(s.config.ScreenshotDir, name+".png"))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", err
	}
	return path, nil
}
