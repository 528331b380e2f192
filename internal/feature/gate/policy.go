package gate

import (
	"strings"
	"unicode/utf8"
)

// Symbols 允许的特殊字符
const Symbols = "@$!%*?&"

const MinPasswordLen = 8

type Rule struct {
	Label string
	Test  func(candidate string) bool
}

type RuleResult struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
}

// Policy 有序规则表；顺序只影响展示，通过条件是全部满足
type Policy []Rule

func containsRange(lo, hi rune) func(string) bool {
	return func(s string) bool {
		return strings.ContainsFunc(s, func(r rune) bool { return r >= lo && r <= hi })
	}
}

var DefaultPolicy = Policy{
	{Label: "At least 8 characters", Test: func(s string) bool { return utf8.RuneCountInString(s) >= MinPasswordLen }},
	{Label: "At least one uppercase letter (A-Z)", Test: containsRange('A', 'Z')},
	{Label: "At least one lowercase letter (a-z)", Test: containsRange('a', 'z')},
	{Label: "At least one number (0-9)", Test: containsRange('0', '9')},
	{Label: "At least one special character (" + Symbols + ")", Test: func(s string) bool { return strings.ContainsAny(s, Symbols) }},
}

// Evaluate 逐条独立求值，用于输入时的实时提示
func (p Policy) Evaluate(candidate string) []RuleResult {
	out := make([]RuleResult, len(p))
	for i, r := range p {
		out[i] = RuleResult{Label: r.Label, Passed: r.Test(candidate)}
	}
	return out
}

func (p Policy) Accepts(candidate string) bool {
	for _, r := range p {
		if !r.Test(candidate) {
			return false
		}
	}
	return true
}

// Failed 未通过的规则说明
func (p Policy) Failed(candidate string) []string {
	var out []string
	for _, r := range p {
		if !r.Test(candidate) {
			out = append(out, r.Label)
		}
	}
	return out
}
