package scanner

import "regexp"

// Rule is a single content check applied to a whole document.
type Rule interface {
	// Name is a short stable identifier, used for metrics and logs.
	Name() string
	// Matches reports whether the text contains the forbidden pattern.
	Matches(text string) bool
	// Describe returns the client-visible violation message.
	Describe() string
}

// RegexRule is a Rule backed by a compiled regular expression.
type RegexRule struct {
	name    string
	pattern *regexp.Regexp
	message string
}

// NewRegexRule compiles pattern as a case-insensitive expression.
// It panics on an invalid pattern, so it is meant for package-level rule tables.
func NewRegexRule(name, pattern, message string) *RegexRule {
	return &RegexRule{
		name:    name,
		pattern: regexp.MustCompile(`(?i)` + pattern),
		message: message,
	}
}

func (r *RegexRule) Name() string { return r.name }

func (r *RegexRule) Matches(text string) bool { return r.pattern.MatchString(text) }

func (r *RegexRule) Describe() string { return r.message }

const (
	MessageJavaScript    = "Potential security vulnerabilities: JavaScript execution"
	MessageRemoteContent = "Potential security vulnerabilities: Links to remote web content"
	MessageLocalFiles    = "Potential security vulnerabilities: Links to local files"
)

// attrs skips attributes up to the one a rule looks for. Quoted values are
// consumed whole so a '>' inside them does not end the tag; an unbalanced
// quote falls through to the plain branch. A tag may span lines.
const attrs = `(?:"[^"]*"|'[^']*'|[^>])*?`

var defaultRules = []Rule{
	NewRegexRule(
		"javascript",
		`<script\b` + attrs + `\btype\s*=\s*["']?\s*(?:text|application)/(?:x-)?(?:java|ecma)script\b`,
		MessageJavaScript,
	),
	NewRegexRule(
		"remote_content",
		`<iframe\b` + attrs + `\bsrc\s*=\s*["']?\s*[^"'\s>]*:`,
		MessageRemoteContent,
	),
	NewRegexRule(
		"local_files",
		`<img\b` + attrs + `\bsrc\s*=\s*["']?\s*file://`,
		MessageLocalFiles,
	),
}

// DefaultRules returns the built-in rule set in evaluation order.
// The returned slice is a copy; the rules themselves are immutable.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}
