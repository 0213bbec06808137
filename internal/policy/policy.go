package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidTemplate is returned when the user-rule template does not define
// where derived rules are inserted.
var ErrInvalidTemplate = errors.New("rule template has no insertion point")

// TemplateRule is a prepopulated rule in the user-rule template. A rule with
// InsertDerived set is a marker: it contributes no rule of its own and
// instead fixes the position of the derived block.
type TemplateRule struct {
	Name          string
	Action        Action
	SrcGroups     []string
	InsertDerived bool
}

// Template is the ordered set of prepopulated user rules for a policy,
// supplied as configuration. Exactly one rule must be an insertion marker.
type Template struct {
	PolicyName    string
	DefaultAction Action
	Rules         []TemplateRule
}

// DefaultTemplate returns a template with no user rules: just the derived
// block under a default-drop policy.
func DefaultTemplate() Template {
	return Template{
		PolicyName:    "def_drop",
		DefaultAction: ActionDrop,
		Rules:         []TemplateRule{{InsertDerived: true}},
	}
}

// insertionIndex returns the position of the single insertion marker.
func (t Template) insertionIndex() (int, error) {
	at := -1
	for i, r := range t.Rules {
		if !r.InsertDerived {
			continue
		}
		if at >= 0 {
			return 0, fmt.Errorf("multiple insertion points (rules %d and %d): %w", at, i, ErrInvalidTemplate)
		}
		at = i
	}
	if at < 0 {
		return 0, ErrInvalidTemplate
	}
	return at, nil
}

// Rule is an ordered entry in a SecurityPolicy, either prepopulated from the
// template or derived from an ACL entry.
type Rule struct {
	Sequence  int
	Name      string
	Action    Action
	SrcGroups []string
	Derived   bool
}

// SecurityPolicy is the ordered rule set submitted for a context. It is
// composed once per run and immutable afterwards.
type SecurityPolicy struct {
	Name          string
	DefaultAction Action
	Rules         []Rule
}

// ComposePolicy merges the template's user rules with one rule per ACL
// entry. User rules keep their relative order; the derived rules are spliced
// in at the template's insertion marker, never interleaved. Sequence numbers
// are assigned over the final order, starting at 1.
func ComposePolicy(entries []Entry, tmpl Template) (SecurityPolicy, error) {
	at, err := tmpl.insertionIndex()
	if err != nil {
		return SecurityPolicy{}, err
	}

	name := tmpl.PolicyName
	if name == "" {
		name = "def_drop"
	}
	defaultAction := tmpl.DefaultAction
	if defaultAction == "" {
		defaultAction = ActionDrop
	}

	rules := make([]Rule, 0, len(tmpl.Rules)-1+len(entries))
	appendUser := func(tr TemplateRule) {
		action := tr.Action
		if action == "" {
			action = ActionAccept
		}
		rules = append(rules, Rule{
			Name:      tr.Name,
			Action:    action,
			SrcGroups: tr.SrcGroups,
		})
	}

	for _, tr := range tmpl.Rules[:at] {
		appendUser(tr)
	}
	for _, e := range entries {
		rules = append(rules, Rule{
			Name:      e.Name,
			Action:    e.Action,
			SrcGroups: []string{e.SrcGroup},
			Derived:   true,
		})
	}
	for _, tr := range tmpl.Rules[at+1:] {
		appendUser(tr)
	}

	for i := range rules {
		rules[i].Sequence = i + 1
	}

	return SecurityPolicy{
		Name:          name,
		DefaultAction: defaultAction,
		Rules:         rules,
	}, nil
}
