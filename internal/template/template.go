// Package template loads the HTML email template and prepares the body
// fragment injected into the Gmail compose window.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// Message is a loaded email template ready to render per recipient.
type Message struct {
	Subject string
	body    *template.Template
	raw     string
}

// Data is what the body template can reference. A template with no
// actions renders unchanged, so plain HTML files work as-is.
type Data struct {
	Recipient string
	Date      string
	Year      int
}

// ExtractBody returns the fragment between the first <body> and the first
// </body> marker. Documents without the marker pair are used whole.
func ExtractBody(html string) string {
	start := strings.Index(html, "<body>")
	if start == -1 {
		return html
	}
	rest := html[start+len("<body>"):]
	end := strings.Index(rest, "</body>")
	if end == -1 {
		return html
	}
	return rest[:end]
}

// LoadMessage reads the template file, slices out the body fragment, and
// parses it for per-recipient rendering.
func LoadMessage(path, subject string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read email template: %w", err)
	}

	raw := ExtractBody(string(data))
	tmpl, err := template.New("body").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &Message{Subject: subject, body: tmpl, raw: raw}, nil
}

// BodyFor renders the body fragment for one recipient.
func (m *Message) BodyFor(recipient string) (string, error) {
	now := time.Now()
	data := Data{
		Recipient: recipient,
		Date:      now.Format("January 2, 2006"),
		Year:      now.Year(),
	}

	var buf bytes.Buffer
	if err := m.body.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}
