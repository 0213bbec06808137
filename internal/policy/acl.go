// Package policy derives access-control entries from subnet groups and
// assembles them, together with preconfigured user rules, into an ordered
// security policy for a firewall context.
package policy

import (
	"errors"
	"fmt"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
)

// Action is a rule forwarding action.
type Action string

const (
	ActionAccept Action = "accept"
	ActionDrop   Action = "drop"
)

// ErrEmptyGroupSet is returned when ACL composition is given no groups.
var ErrEmptyGroupSet = errors.New("no groups to compose ACL entries from")

// staticSequenceGap leaves room between the derived entries and entries for
// operator-maintained static groups, so inserting a few more generated
// groups later does not renumber the static block.
const staticSequenceGap = 5

// Entry is a single accept-action ACL entry referencing a source group.
// The name is derived deterministically from the group name, so composing
// the same group set twice yields entries with the same identifiers.
type Entry struct {
	Name       string
	SequenceID int
	SrcGroup   string
	Action     Action
}

// ComposeACL produces exactly one accept entry per group, in group order,
// with sequence IDs starting at 1.
func ComposeACL(groups []alloc.Group) ([]Entry, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyGroupSet
	}

	entries := make([]Entry, 0, len(groups))
	for i, g := range groups {
		entries = append(entries, Entry{
			Name:       fmt.Sprintf("%s-acl", g.Name),
			SequenceID: i + 1,
			SrcGroup:   g.Name,
			Action:     ActionAccept,
		})
	}
	return entries, nil
}

// AppendStatic appends accept entries for static groups after the derived
// block, offset by staticSequenceGap.
func AppendStatic(entries []Entry, statics []alloc.Group) []Entry {
	base := len(entries) + staticSequenceGap
	for i, g := range statics {
		entries = append(entries, Entry{
			Name:       fmt.Sprintf("%s-acl", g.Name),
			SequenceID: base + i,
			SrcGroup:   g.Name,
			Action:     ActionAccept,
		})
	}
	return entries
}
