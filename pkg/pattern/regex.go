package pattern

import (
	"regexp"
	"strings"
)

// Wildcard selects the sub-expression substituted for a template placeholder
// when converting the template to a verification regex.
type Wildcard int

const (
	// WildcardNonWhitespace matches a single non-whitespace run. Tight match
	// for single-token parameters.
	WildcardNonWhitespace Wildcard = iota
	// WildcardAny matches greedily across spaces. The default for
	// verification, because generated parameter values are open text.
	WildcardAny
	// WildcardAnyLazy matches lazily, for disambiguating adjacent literals.
	WildcardAnyLazy
)

func (w Wildcard) expr() string {
	switch w {
	case WildcardAny:
		return `.*`
	case WildcardAnyLazy:
		return `.*?`
	default:
		return `\S+`
	}
}

// Marker is the canonical placeholder token. Any bracketed placeholder in an
// incoming template is normalized to this marker before conversion, so the
// rest of the pipeline only ever sees one placeholder spelling.
const Marker = "<*>"

var placeholderRe = regexp.MustCompile(`<[^>]+>`)

// sentinel survives regexp.QuoteMeta unescaped, letting the wildcard be
// substituted after the literal text has been escaped.
const sentinel = "\x00WILDCARD\x00"

// Normalize rewrites every bracketed placeholder to the canonical Marker,
// regardless of its original decoration (<*>, <*:list>, <NUM>, ...).
func Normalize(template string) string {
	return placeholderRe.ReplaceAllString(template, Marker)
}

// HasPlaceholder reports whether the pattern contains any placeholder token.
func HasPlaceholder(pattern string) bool {
	return placeholderRe.MatchString(pattern)
}

// ToRegex converts a template-like pattern into a regex source string. The
// literal text is escaped character by character, so punctuation such as
// '.', '(' and ')' matches literally; each placeholder becomes the given
// wildcard sub-expression.
func ToRegex(pattern string, w Wildcard) string {
	normalized := Normalize(pattern)
	escaped := regexp.QuoteMeta(strings.ReplaceAll(normalized, Marker, sentinel))
	return strings.ReplaceAll(escaped, sentinel, w.expr())
}

// Compile converts a pattern to a regex (greedy wildcards) and compiles it.
func Compile(pattern string, w Wildcard) (*regexp.Regexp, error) {
	return regexp.Compile(ToRegex(pattern, w))
}

// LiteralLength returns the length of the pattern's literal text with all
// placeholders removed. Used to rank candidate templates by specificity.
func LiteralLength(pattern string) int {
	return len(strings.ReplaceAll(Normalize(pattern), Marker, ""))
}
