package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "full document",
			html: "<html><head><title>x</title></head><body><p>Hello</p></body></html>",
			want: "<p>Hello</p>",
		},
		{
			name: "no body tags",
			html: "<div>fragment only</div>",
			want: "<div>fragment only</div>",
		},
		{
			name: "opening tag without close",
			html: "<body><p>truncated",
			want: "<body><p>truncated",
		},
		{
			name: "empty body",
			html: "<html><body></body></html>",
			want: "",
		},
		{
			name: "first pair wins",
			html: "<body>one</body><body>two</body>",
			want: "one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBody(tt.html); got != tt.want {
				t.Errorf("ExtractBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadMessageAndRender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.html")
	content := "<html><body><p>Dear {{.Recipient}},</p><p>Sent {{.Date}}.</p></body></html>"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	msg, err := LoadMessage(path, "Quarterly update")
	if err != nil {
		t.Fatalf("LoadMessage() error: %v", err)
	}
	if msg.Subject != "Quarterly update" {
		t.Errorf("Subject = %q", msg.Subject)
	}

	body, err := msg.BodyFor("alice@example.com")
	if err != nil {
		t.Fatalf("BodyFor() error: %v", err)
	}
	if !strings.Contains(body, "Dear alice@example.com,") {
		t.Errorf("rendered body missing recipient: %q", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("rendered body contains unexpanded actions: %q", body)
	}
}

func TestLoadMessagePlainHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.html")
	content := "<body><h1>Static announcement</h1></body>"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	msg, err := LoadMessage(path, "Announcement")
	if err != nil {
		t.Fatalf("LoadMessage() error: %v", err)
	}
	body, err := msg.BodyFor("bob@example.com")
	if err != nil {
		t.Fatalf("BodyFor() error: %v", err)
	}
	if body != "<h1>Static announcement</h1>" {
		t.Errorf("plain HTML must render unchanged, got %q", body)
	}
}

func TestLoadMessageMissingFile(t *testing.T) {
	if _, err := LoadMessage(filepath.Join(t.TempDir(), "missing.html"), "x"); err == nil {
		t.Error("expected error for missing template file")
	}
}
