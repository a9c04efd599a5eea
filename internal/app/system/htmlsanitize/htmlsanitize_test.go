package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/htmlsanitize"
)

func TestText_Empty(t *testing.T) {
	if got := htmlsanitize.Text(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestText_PlainTextUnchanged(t *testing.T) {
	input := "Great take-off spot, watch the power lines!"
	if got := htmlsanitize.Text(input); got != input {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestText_RemovesScript(t *testing.T) {
	got := htmlsanitize.Text("Nice view<script>alert('xss')</script>")
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("expected script removed, got %q", got)
	}
	if !strings.HasPrefix(got, "Nice view") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestText_StripsFormatting(t *testing.T) {
	got := htmlsanitize.Text("<p><strong>Windy</strong> ridge</p>")
	if got != "Windy ridge" {
		t.Errorf("expected tags stripped, got %q", got)
	}
}

func TestText_KeepsAmpersand(t *testing.T) {
	got := htmlsanitize.Text("Sand & cliffs")
	if got != "Sand & cliffs" {
		t.Errorf("expected ampersand kept, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("just words") {
		t.Error("expected plain text")
	}
	if htmlsanitize.IsPlainText("<b>bold</b>") {
		t.Error("expected markup to be detected")
	}
}
