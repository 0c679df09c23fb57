// Package scanner inspects document markup for content that must not reach
// the viewing service: embedded scripts, remote frames and local file links.
package scanner

// Violation is a match of a document against a forbidden pattern.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string { return v.Message }

// Result is the outcome of a scan. The zero value is a clean result.
type Result struct {
	Violation *Violation
}

// Clean reports whether no rule matched.
func (r Result) Clean() bool { return r.Violation == nil }

// Scanner applies an ordered rule set. It is safe for concurrent use.
type Scanner struct {
	rules []Rule
}

// New returns a Scanner over rules, or over DefaultRules when none are given.
func New(rules ...Rule) *Scanner {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Scanner{rules: rules}
}

// Scan evaluates the rules in order against the full text and returns the
// first violation. Order decides which message wins when several match.
func (s *Scanner) Scan(text string) Result {
	for _, rule := range s.rules {
		if rule.Matches(text) {
			return Result{Violation: &Violation{Rule: rule.Name(), Message: rule.Describe()}}
		}
	}
	return Result{}
}

// Rules returns the rules in evaluation order.
func (s *Scanner) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}
