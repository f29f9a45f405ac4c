package template

import "strings"

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// HTMLToText derives a plain-text body from an HTML body: tags are replaced
// with a space, the five standard entities are unescaped, and whitespace runs
// collapse to single spaces. Stripping and unescaping repeat until the string
// stops changing, so markup that arrived entity-encoded (even multiple times
// over) is stripped instead of surviving as live tags. Pure and idempotent:
// running it over its own output is a no-op.
func HTMLToText(s string) string {
	for {
		next := entityReplacer.Replace(stripTags(s))
		if next == s {
			break
		}
		s = next
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripTags removes well-formed tags. A '<' only opens a tag when followed by
// a letter, '/', or '!', so stray angle brackets in already-stripped text are
// left alone.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '<' && i+1 < len(s) && isTagStart(s[i+1]) {
			if j := strings.IndexByte(s[i:], '>'); j >= 0 {
				b.WriteByte(' ')
				i += j + 1
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isTagStart(c byte) bool {
	return c == '/' || c == '!' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
