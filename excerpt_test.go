package folio

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerptStripsMarkdown(t *testing.T) {
	content := "# My Post\n\nThis is **bold** and *italic* text with `code` and a [link](https://example.com).\n\n" +
		"![alt text](/img/pic.png)\n\n> A quote\n\n- item one\n- item two\n\n```go\nfunc main() {}\n```\n\nDone."
	got := Excerpt(content, 500)

	for _, marker := range []string{"#", "**", "*", "`", "](", "![", ">", "```"} {
		if strings.Contains(got, marker) {
			t.Errorf("excerpt still contains %q: %q", marker, got)
		}
	}
	for _, want := range []string{"My Post", "bold", "italic", "code", "link", "A quote", "item one", "Done."} {
		if !strings.Contains(got, want) {
			t.Errorf("excerpt lost text %q: %q", want, got)
		}
	}
	if strings.Contains(got, "func main") {
		t.Errorf("fenced code body leaked into excerpt: %q", got)
	}
	if strings.Contains(got, "alt text") {
		t.Errorf("image markup leaked into excerpt: %q", got)
	}
}

func TestExcerptShortContentUntruncated(t *testing.T) {
	got := Excerpt("Just a short note.", 150)
	if got != "Just a short note." {
		t.Errorf("Excerpt = %q, want input unchanged", got)
	}
	if strings.HasSuffix(got, "...") {
		t.Error("short content must not get an ellipsis")
	}
}

func TestExcerptTruncatesAtWordBoundary(t *testing.T) {
	content := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	got := Excerpt(content, 50)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated excerpt missing ellipsis: %q", got)
	}
	body := strings.TrimSuffix(got, "...")
	if strings.HasSuffix(body, " ") {
		t.Errorf("excerpt ends with a space before the ellipsis: %q", got)
	}
	// The cut should fall between words, not through one.
	words := strings.Fields(body)
	last := words[len(words)-1]
	switch last {
	case "lorem", "ipsum", "dolor", "sit", "amet":
	default:
		t.Errorf("excerpt cut through a word: %q", last)
	}
}

func TestExcerptBounded(t *testing.T) {
	inputs := []struct {
		content string
		max     int
	}{
		{strings.Repeat("a", 1000), 150},
		{strings.Repeat("word ", 200), 150},
		{strings.Repeat("word ", 200), 10},
		{"# " + strings.Repeat("title ", 100), 80},
	}
	for _, tc := range inputs {
		got := Excerpt(tc.content, tc.max)
		if len(got) > tc.max+3 {
			t.Errorf("Excerpt(len %d, max %d) produced %d chars, want <= %d",
				len(tc.content), tc.max, len(got), tc.max+3)
		}
	}
}

func TestExcerptDefaultLength(t *testing.T) {
	content := strings.Repeat("word ", 100)
	got := Excerpt(content, 0)
	if len(got) > DefaultExcerptLength+3 {
		t.Errorf("default excerpt is %d chars, want <= %d", len(got), DefaultExcerptLength+3)
	}
}

func TestExcerptKeepsMultibyteRunesIntact(t *testing.T) {
	// 150 falls mid-rune in a run of 3-byte CJK characters, so the cut
	// must back up rather than emit a partial encoding.
	got := Excerpt("a"+strings.Repeat("世", 100), 150)
	if !utf8.ValidString(got) {
		t.Fatalf("excerpt is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated excerpt missing ellipsis: %q", got)
	}
	if len(got) > 153 {
		t.Errorf("excerpt length = %d, want <= 153", len(got))
	}

	// Same with spaces far enough back that the word cut is skipped.
	got = Excerpt("ab "+strings.Repeat("日本語", 60), 100)
	if !utf8.ValidString(got) {
		t.Errorf("excerpt is not valid UTF-8: %q", got)
	}
}

func TestExcerptHardCutWithoutSpaces(t *testing.T) {
	got := Excerpt(strings.Repeat("x", 400), 100)
	if len(got) != 103 {
		t.Errorf("unbroken text excerpt length = %d, want 103", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("unbroken text excerpt missing ellipsis: %q", got)
	}
}
