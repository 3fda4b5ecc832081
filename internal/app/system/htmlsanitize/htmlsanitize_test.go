package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/campusboard/internal/app/system/htmlsanitize"
)

// post bodies keep formatting markup
func TestSanitize_Preserves(t *testing.T) {
	inputs := []string{
		"",
		"Meeting moved to Thursday.",
		"<p><strong>Bold</strong> and <em>italic</em></p>",
		"<ul><li>Agenda</li><li>Minutes</li></ul>",
		"<ol><li>First</li><li>Second</li></ol>",
		"<blockquote>Quoted reply</blockquote>",
		"<h1>Heading 1</h1><h2>Heading 2</h2><h3>Heading 3</h3>",
		"<pre><code>go test ./...</code></pre>",
	}
	for _, in := range inputs {
		if got := htmlsanitize.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitize_Removes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		gone    string
		survive string
	}{
		{"script", "<p>Hello</p><script>alert('xss')</script>", "script", "<p>Hello</p>"},
		{"onclick", `<p onclick="alert('xss')">Click</p>`, "onclick", "Click"},
		{"javascript href", `<a href="javascript:alert('xss')">Click</a>`, "javascript:", "Click"},
		{"iframe", `<p>Content</p><iframe src="https://evil.example"></iframe>`, "iframe", "Content"},
		{"style", `<style>body { color: red; }</style><p>Text</p>`, "<style>", "Text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tt.input)
			if strings.Contains(got, tt.gone) {
				t.Errorf("Sanitize(%q) = %q, still contains %q", tt.input, got, tt.gone)
			}
			if !strings.Contains(got, tt.survive) {
				t.Errorf("Sanitize(%q) = %q, lost %q", tt.input, got, tt.survive)
			}
		})
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://campus.example/events">Events</a>`)
	if !strings.Contains(got, `href="https://campus.example/events"`) {
		t.Errorf("link dropped: %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Chess Club", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
		{"a <b> c", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Chess Club", want: "Chess Club"},
		{name: "bold", input: "<b>Chess</b> Club", want: "Chess Club"},
		{name: "script", input: "Club<script>alert(1)</script>", want: "Club"},
		{name: "ampersand kept literal", input: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "comparison kept", input: "5 < 10", want: "5 < 10"},
		{name: "trimmed", input: "  Robotics  ", want: "Robotics"},
		{name: "encoded markup", input: "&lt;b&gt;x&lt;/b&gt;", want: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.StripTags(tt.input); got != tt.want {
				t.Errorf("StripTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
