package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Sweep\n\n| groups | cancelled |\n|---|---|\n| 2 | 3 |\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"<h1>Sweep</h1>", "<table>", "<td>3</td>"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in %s", want, html)
		}
	}
}

func TestRenderMarkdown_EscapesRawHTML(t *testing.T) {
	html, err := RenderMarkdown("<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw HTML must not pass through: %s", html)
	}
}

func TestNoopSender_RecordsMessages(t *testing.T) {
	s := NewNoopSender()
	r, err := s.Send(context.Background(), Message{To: []string{"ops@studio.test"}, Subject: "report"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MessageID != "noop-1" {
		t.Errorf("MessageID = %q, want noop-1", r.MessageID)
	}
	if got := s.Sent(); len(got) != 1 || got[0].Subject != "report" {
		t.Errorf("Sent() = %+v", got)
	}
}
