package distribution

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/types"
)

// SplitRule assigns a percentage of an inbound payment to an account,
// addressed by its stable code.
type SplitRule struct {
	AccountCode string      `json:"accountCode"`
	Percent     types.Money `json:"percent"`
}

// RuleSet is an ordered, validated list of split rules. Percentages sum to
// exactly 100; validation happens at configuration time, so a malformed rule
// set is a startup failure, never a runtime error.
type RuleSet struct {
	rules []SplitRule
}

var hundred = decimal.NewFromInt(100)

// NewRuleSet validates and builds a rule set.
func NewRuleSet(rules []SplitRule) (RuleSet, error) {
	if len(rules) == 0 {
		return RuleSet{}, apperror.NewInvalidSplitConfig("split rule set is empty")
	}
	total := types.Zero()
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.AccountCode == "" {
			return RuleSet{}, apperror.NewInvalidSplitConfig("split rule account code is empty")
		}
		if seen[r.AccountCode] {
			return RuleSet{}, apperror.NewInvalidSplitConfig("duplicate split rule for account " + r.AccountCode)
		}
		seen[r.AccountCode] = true
		if !r.Percent.IsPositive() {
			return RuleSet{}, apperror.NewInvalidSplitConfig("split percentage must be positive for account " + r.AccountCode)
		}
		total = total.Add(r.Percent)
	}
	if !total.Equal(hundred) {
		return RuleSet{}, apperror.NewInvalidSplitConfig(
			fmt.Sprintf("split percentages sum to %s, want exactly 100", total),
		)
	}
	out := make([]SplitRule, len(rules))
	copy(out, rules)
	return RuleSet{rules: out}, nil
}

// ParseRules parses a rule set from its compact config form, e.g.
// "boveda_monte:63,fletes:5,utilidades:32".
func ParseRules(s string) (RuleSet, error) {
	parts := strings.Split(s, ",")
	rules := make([]SplitRule, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, pct, ok := strings.Cut(part, ":")
		if !ok {
			return RuleSet{}, apperror.NewInvalidSplitConfig("malformed split rule: " + part)
		}
		percent, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return RuleSet{}, apperror.NewInvalidSplitConfig("malformed split percentage: " + pct).WithCause(err)
		}
		rules = append(rules, SplitRule{
			AccountCode: strings.TrimSpace(code),
			Percent:     percent,
		})
	}
	return NewRuleSet(rules)
}

// Rules returns a copy of the ordered rules.
func (rs RuleSet) Rules() []SplitRule {
	out := make([]SplitRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Empty reports whether the rule set holds no rules (zero value).
func (rs RuleSet) Empty() bool {
	return len(rs.rules) == 0
}
