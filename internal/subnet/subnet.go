// Package subnet partitions a network block into fixed-size subnets for
// cluster locations, skipping ranges already used by other clusters.
package subnet

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math/rand/v2"
	"net/netip"

	"github.com/kompox/pgcluster/domain/model"
)

const (
	// MinPrefix and MaxPrefix bound the accepted subnet prefix lengths
	// (exclusive).
	MinPrefix = 23
	MaxPrefix = 29

	// maxSplitBits caps the number of candidate subnets at 2^20.
	maxSplitBits = 20

	DefaultNetwork = "10.33.0.0/16"
	DefaultPrefix  = 28
)

// Allocator yields the /prefix subnets of a network block. The zero value is
// not usable; call New.
type Allocator struct {
	network  netip.Prefix
	prefix   int
	excluded []netip.Prefix
	rng      *rand.Rand
}

// New returns an allocator for the given block and subnet prefix length.
// The prefix must satisfy 23 < prefix < 29 and fit inside the block.
func New(cidr string, prefix int) (*Allocator, error) {
	if !(MinPrefix < prefix && prefix < MaxPrefix) {
		return nil, fmt.Errorf("%w: subnet prefix /%d must be between /%d and /%d", model.ErrConfiguration, prefix, MinPrefix+1, MaxPrefix-1)
	}
	network, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid network %q: %v", model.ErrConfiguration, cidr, err)
	}
	if !network.Addr().Is4() {
		return nil, fmt.Errorf("%w: network %q is not an IPv4 block", model.ErrConfiguration, cidr)
	}
	network = network.Masked()
	if prefix < network.Bits() {
		return nil, fmt.Errorf("%w: subnet prefix /%d is larger than network %s", model.ErrConfiguration, prefix, network)
	}
	if prefix-network.Bits() > maxSplitBits {
		return nil, fmt.Errorf("%w: network %s is too large to partition into /%d subnets", model.ErrConfiguration, network, prefix)
	}
	return &Allocator{network: network, prefix: prefix}, nil
}

// Network returns the block being partitioned.
func (a *Allocator) Network() netip.Prefix { return a.network }

// Prefix returns the subnet prefix length.
func (a *Allocator) Prefix() int { return a.prefix }

// Exclude drops every candidate that overlaps any of cidrs. Plain addresses
// are treated as host routes.
func (a *Allocator) Exclude(cidrs []string) error {
	for _, s := range cidrs {
		p, err := parseRange(s)
		if err != nil {
			return fmt.Errorf("%w: invalid excluded subnet %q: %v", model.ErrConfiguration, s, err)
		}
		a.excluded = append(a.excluded, p)
	}
	return nil
}

// Shuffle randomizes the order of the remaining subnets using r, or a
// randomly seeded source if r is nil. It lowers the chance that clusters
// configured concurrently into the same block pick the same subnets.
func (a *Allocator) Shuffle(r *rand.Rand) {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	a.rng = r
}

// NoShuffle restores the natural address order.
func (a *Allocator) NoShuffle() { a.rng = nil }

// Count returns the number of /prefix subnets in the block, before
// exclusions.
func (a *Allocator) Count() int {
	return 1 << (a.prefix - a.network.Bits())
}

// All returns the remaining subnets. Each call starts a fresh iteration; the
// shuffled order is drawn anew from the allocator's random source.
func (a *Allocator) All() iter.Seq[netip.Prefix] {
	return func(yield func(netip.Prefix) bool) {
		n := a.Count()
		next := func(k int) int { return k }
		if a.rng != nil {
			perm := a.rng.Perm(n)
			next = func(k int) int { return perm[k] }
		}
		for k := 0; k < n; k++ {
			p := a.nth(next(k))
			if a.isExcluded(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Take returns the first n remaining subnets.
func (a *Allocator) Take(n int) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, n)
	if n <= 0 {
		return out, nil
	}
	for p := range a.All() {
		out = append(out, p)
		if len(out) == n {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot allocate %d /%d subnets from %s (%d available after exclusions); use a larger network or smaller subnets",
		model.ErrCapacity, n, a.prefix, a.network, len(out))
}

func (a *Allocator) nth(k int) netip.Prefix {
	b := a.network.Addr().As4()
	v := binary.BigEndian.Uint32(b[:]) + uint32(k)<<(32-a.prefix)
	binary.BigEndian.PutUint32(b[:], v)
	return netip.PrefixFrom(netip.AddrFrom4(b), a.prefix)
}

func (a *Allocator) isExcluded(p netip.Prefix) bool {
	for _, x := range a.excluded {
		if x.Overlaps(p) {
			return true
		}
	}
	return false
}

func parseRange(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
