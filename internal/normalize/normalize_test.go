package normalize

import (
	"strings"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tracking params",
			in:   "https://Example.COM/post?utm_source=x&id=7&fbclid=abc",
			want: "https://example.com/post?id=7",
		},
		{
			name: "lowercases scheme and host only",
			in:   "HTTPS://News.Example.org/Path/Item",
			want: "https://news.example.org/Path/Item",
		},
		{
			name: "keeps blank values",
			in:   "https://example.com/a?flag=",
			want: "https://example.com/a?flag=",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalURL(tc.in); got != tc.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	if got := Text("  a\n\tb   c  "); got != "a b c" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := Text(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestFingerprintIdempotent(t *testing.T) {
	t.Parallel()

	a := Fingerprint("https://example.com/story", "Big   News")
	b := Fingerprint("https://example.com/story", "  Big News ")
	if a != b {
		t.Fatalf("fingerprints differ for equivalent content: %s vs %s", a, b)
	}

	c := Fingerprint("https://example.com/story", "Other News")
	if a == c {
		t.Fatalf("distinct content collided: %s", a)
	}

	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", a)
	}
}

func TestFingerprintSkipsEmptyParts(t *testing.T) {
	t.Parallel()

	a := Fingerprint("url", "", "title")
	b := Fingerprint("url", "title")
	if a != b {
		t.Fatalf("empty parts should not affect the digest")
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()

	if got := Domain("https://News.Example.org/x"); got != "news.example.org" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := Domain("::bad::"); got != "" {
		t.Fatalf("expected empty domain for invalid url, got %q", got)
	}
}

func TestMergeKeywords(t *testing.T) {
	t.Parallel()

	merged := MergeKeywords(
		[]string{"AI", "robots "},
		[]string{"ai", "Chips", ""},
	)

	want := []string{"ai", "robots", "chips"}
	if strings.Join(merged, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected merge result: %v", merged)
	}
}
