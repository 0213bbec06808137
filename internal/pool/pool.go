// Package pool implements an address pool that hands out prefix-aligned,
// mutually disjoint address blocks from a configured address space.
//
// Reserved ranges are kept sorted by base address so each reservation is a
// single ordered walk over the ledger instead of pairwise overlap checks.
// When more than one free block of the requested size exists, the pool picks
// uniformly at random among them; the random source is injected so runs can
// be made deterministic in tests.
package pool

import (
	"errors"
	"fmt"
	"math/rand"
	"net/netip"
	"slices"
)

// ErrExhausted is returned when no unreserved block of the requested size
// remains in the pool.
var ErrExhausted = errors.New("address pool exhausted")

// maxSpanBits bounds how many blocks of the requested size a single pool may
// span. Block indices are uint64, so the span must fit in 63 bits with room
// for signed random draws.
const maxSpanBits = 62

// Pool tracks the allocatable address space and all blocks issued from it.
// A Pool owns its ledger for the lifetime of one provisioning run and is not
// safe for concurrent use; runs for independent contexts each get their own.
type Pool struct {
	space    netip.Prefix
	rng      *rand.Rand
	reserved []netip.Prefix // sorted by base address, pairwise disjoint
}

// New creates a Pool over the given address space. The space must be a valid,
// boundary-aligned prefix. A nil rng falls back to an unseeded source.
func New(space netip.Prefix, rng *rand.Rand) (*Pool, error) {
	if !space.IsValid() {
		return nil, fmt.Errorf("invalid pool space %v", space)
	}
	if space.Addr() != space.Masked().Addr() {
		return nil, fmt.Errorf("pool space %v is not aligned to its prefix boundary", space)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Pool{space: space, rng: rng}, nil
}

// Space returns the pool's address space.
func (p *Pool) Space() netip.Prefix {
	return p.space
}

// Reserved returns a copy of the reservation ledger in address order.
func (p *Pool) Reserved() []netip.Prefix {
	return slices.Clone(p.reserved)
}

// Reserve returns a block of the requested prefix length disjoint from every
// previously reserved block, or ErrExhausted when no free region of that size
// remains.
func (p *Pool) Reserve(bits int) (netip.Prefix, error) {
	if err := p.checkBits(bits); err != nil {
		return netip.Prefix{}, err
	}

	total := uint64(1) << (bits - p.space.Bits())
	blocked := p.blockedIntervals(bits)

	var blockedCount uint64
	for _, iv := range blocked {
		blockedCount += iv.hi - iv.lo + 1
	}
	free := total - blockedCount
	if free == 0 {
		return netip.Prefix{}, fmt.Errorf("no free /%d block in %v: %w", bits, p.space, ErrExhausted)
	}

	// Pick the k-th free block index, counting gaps between blocked intervals.
	k := uint64(p.rng.Int63n(int64(free)))
	idx := uint64(0)
	cursor := uint64(0)
	found := false
	for _, iv := range blocked {
		gap := iv.lo - cursor
		if k < gap {
			idx = cursor + k
			found = true
			break
		}
		k -= gap
		cursor = iv.hi + 1
	}
	if !found {
		idx = cursor + k
	}

	block := netip.PrefixFrom(blockAddr(p.space, idx, bits), bits)

	// Insert keeping the ledger sorted by base address.
	at, _ := slices.BinarySearchFunc(p.reserved, block, func(a, b netip.Prefix) int {
		return a.Addr().Compare(b.Addr())
	})
	p.reserved = slices.Insert(p.reserved, at, block)

	return block, nil
}

// FreeCount reports how many unreserved blocks of the given prefix length
// remain in the pool.
func (p *Pool) FreeCount(bits int) (uint64, error) {
	if err := p.checkBits(bits); err != nil {
		return 0, err
	}
	total := uint64(1) << (bits - p.space.Bits())
	for _, iv := range p.blockedIntervals(bits) {
		total -= iv.hi - iv.lo + 1
	}
	return total, nil
}

func (p *Pool) checkBits(bits int) error {
	addrBits := p.space.Addr().BitLen()
	if bits < p.space.Bits() || bits > addrBits {
		return fmt.Errorf("prefix length /%d outside pool %v", bits, p.space)
	}
	if bits-p.space.Bits() > maxSpanBits {
		return fmt.Errorf("prefix length /%d too fine for pool %v (span exceeds %d bits)", bits, p.space, maxSpanBits)
	}
	return nil
}

// interval is an inclusive range of block indices at some granularity.
type interval struct {
	lo, hi uint64
}

// blockedIntervals maps the reservation ledger onto merged, sorted intervals
// of block indices at the given granularity. A reserved block coarser than
// the granularity covers many indices; a finer one blocks the single index
// containing it.
func (p *Pool) blockedIntervals(bits int) []interval {
	out := make([]interval, 0, len(p.reserved))
	for _, r := range p.reserved {
		lo := blockIndex(p.space, r.Addr(), bits)
		hi := lo
		if r.Bits() < bits {
			hi = lo + (uint64(1) << (bits - r.Bits())) - 1
		}
		if n := len(out); n > 0 && lo <= out[n-1].hi+1 {
			// Contiguous or overlapping with the previous interval; extend.
			if hi > out[n-1].hi {
				out[n-1].hi = hi
			}
			continue
		}
		out = append(out, interval{lo, hi})
	}
	return out
}

// blockIndex returns the index of the bits-sized block containing addr,
// relative to the base of the space.
func blockIndex(space netip.Prefix, addr netip.Addr, bits int) uint64 {
	hi, lo := addrU128(addr)
	bhi, blo := addrU128(space.Addr())
	hi, lo = sub128(hi, lo, bhi, blo)
	return shr128(hi, lo, uint(addr.BitLen()-bits))
}

// blockAddr returns the base address of the index-th bits-sized block in the
// space.
func blockAddr(space netip.Prefix, index uint64, bits int) netip.Addr {
	base := space.Addr()
	shift := uint(base.BitLen() - bits)

	var ohi, olo uint64
	if shift >= 64 {
		ohi, olo = index<<(shift-64), 0
	} else {
		ohi, olo = index>>(64-shift), index<<shift
	}

	bhi, blo := addrU128(base)
	hi, lo := add128(bhi, blo, ohi, olo)
	return u128Addr(hi, lo, base.Is4())
}

func addrU128(a netip.Addr) (hi, lo uint64) {
	b := a.As16()
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
		lo = lo<<8 | uint64(b[i+8])
	}
	return hi, lo
}

func u128Addr(hi, lo uint64, v4 bool) netip.Addr {
	var b [16]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(hi)
		b[i+8] = byte(lo)
		hi >>= 8
		lo >>= 8
	}
	addr := netip.AddrFrom16(b)
	if v4 {
		return addr.Unmap()
	}
	return addr
}

func sub128(ahi, alo, bhi, blo uint64) (hi, lo uint64) {
	lo = alo - blo
	hi = ahi - bhi
	if alo < blo {
		hi--
	}
	return hi, lo
}

func add128(ahi, alo, bhi, blo uint64) (hi, lo uint64) {
	lo = alo + blo
	hi = ahi + bhi
	if lo < alo {
		hi++
	}
	return hi, lo
}

func shr128(hi, lo uint64, n uint) uint64 {
	switch {
	case n == 0:
		return lo
	case n >= 64:
		return hi >> (n - 64)
	default:
		return lo>>n | hi<<(64-n)
	}
}
