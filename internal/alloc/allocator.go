// Package alloc draws subnets from an address pool and partitions them into
// named groups for a firewall context.
package alloc

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"

	"github.com/ngfw-tools/ruleforge/internal/pool"
)

var (
	// ErrInvalidCount is returned when a non-positive subnet count is requested.
	ErrInvalidCount = errors.New("subnet count must be positive")

	// ErrInvalidGroupSize is returned when a non-positive group size is requested.
	ErrInvalidGroupSize = errors.New("group size must be positive")
)

// Subnet is an allocated address block tagged with a unique identifier and
// the firewall context it belongs to. It lives until the orchestrator tears
// the context down on the remote store.
type Subnet struct {
	ID      string
	Context string
	Block   netip.Prefix
}

// Group is a named collection of allocated subnets. Every subnet belongs to
// exactly one group and group names are unique within a run.
type Group struct {
	Name    string
	Subnets []Subnet
}

// CIDRs returns the group's subnets in allocation order as CIDR strings.
func (g Group) CIDRs() []string {
	out := make([]string, len(g.Subnets))
	for i, s := range g.Subnets {
		out[i] = s.Block.String()
	}
	return out
}

// Allocator draws subnets of a fixed prefix length from its pool.
type Allocator struct {
	pool      *pool.Pool
	context   string
	prefixLen int
}

// New creates an Allocator for the given context. The pool's reservation
// ledger is mutated by Allocate.
func New(p *pool.Pool, context string, prefixLen int) *Allocator {
	return &Allocator{pool: p, context: context, prefixLen: prefixLen}
}

// Allocate reserves count subnets and partitions them into groups of
// groupSize, preserving allocation order. The last group may be smaller.
// Only the address selection is randomized; grouping is deterministic:
// the first groupSize subnets form group-1, the next group-2, and so on.
func (a *Allocator) Allocate(count, groupSize int) ([]Group, error) {
	if count <= 0 {
		return nil, fmt.Errorf("requested %d subnets: %w", count, ErrInvalidCount)
	}
	if groupSize <= 0 {
		return nil, fmt.Errorf("requested group size %d: %w", groupSize, ErrInvalidGroupSize)
	}

	subnets := make([]Subnet, 0, count)
	for i := 0; i < count; i++ {
		block, err := a.pool.Reserve(a.prefixLen)
		if err != nil {
			return nil, fmt.Errorf("allocating subnet %d of %d: %w", i+1, count, err)
		}
		subnets = append(subnets, Subnet{
			ID:      uuid.NewString(),
			Context: a.context,
			Block:   block,
		})
	}

	groups := make([]Group, 0, (count+groupSize-1)/groupSize)
	for start := 0; start < count; start += groupSize {
		end := start + groupSize
		if end > count {
			end = count
		}
		groups = append(groups, Group{
			Name:    fmt.Sprintf("group-%d", len(groups)+1),
			Subnets: subnets[start:end],
		})
	}

	return groups, nil
}

// StaticGroup builds a Group from preconfigured CIDR strings, tagged with
// the allocator's context. Static groups are not drawn from the pool; they
// carry operator-maintained subnets appended after the generated groups.
func (a *Allocator) StaticGroup(name string, cidrs []string) (Group, error) {
	g := Group{Name: name, Subnets: make([]Subnet, 0, len(cidrs))}
	for _, c := range cidrs {
		prefix, err := netip.ParsePrefix(c)
		if err != nil {
			return Group{}, fmt.Errorf("static group %s: %w", name, err)
		}
		g.Subnets = append(g.Subnets, Subnet{
			ID:      uuid.NewString(),
			Context: a.context,
			Block:   prefix.Masked(),
		})
	}
	return g, nil
}
