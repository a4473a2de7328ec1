package api_test

import (
	"strings"
	"testing"

	"github.com/alan-mat/askdoc/internal/api"
)

func TestPreviewShortContent(t *testing.T) {
	d := api.Document{ID: "1", Title: "Short", Content: "brief note"}

	p := d.Preview(200)
	if p.Preview != "brief note" {
		t.Errorf("Preview = %q, want content untouched", p.Preview)
	}
}

func TestPreviewTruncates(t *testing.T) {
	d := api.Document{Content: strings.Repeat("x", 300)}

	p := d.Preview(200)
	if len([]rune(p.Preview)) != 203 {
		t.Errorf("preview length = %d runes, want 200 plus ellipsis", len([]rune(p.Preview)))
	}
	if !strings.HasSuffix(p.Preview, "...") {
		t.Errorf("truncated preview does not end with ellipsis: %q", p.Preview)
	}
}

func TestPreviewMultibyte(t *testing.T) {
	d := api.Document{Content: strings.Repeat("ü", 250)}

	p := d.Preview(200)
	if strings.ContainsRune(p.Preview, '�') {
		t.Errorf("preview split a multibyte rune: %q", p.Preview)
	}
	if len([]rune(p.Preview)) != 203 {
		t.Errorf("preview length = %d runes, want 200 plus ellipsis", len([]rune(p.Preview)))
	}
}
