// Package filter decides which client addresses are excluded from
// aggregation: operator-approved addresses from a whitelist file, and
// private/internal ranges when internal exclusion is on.
package filter

import (
	"bufio"
	"net/netip"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seancfoley/ipaddress-go/ipaddr"

	"github.com/soctools/logwarden/internal/domain"
)

// Whitelist holds approved addresses and CIDR blocks in per-family prefix
// tries, so containment checks stay dual-stack aware: an IPv4 client never
// matches an IPv6 block and vice versa.
type Whitelist struct {
	trieV4 *ipaddr.IPv4AddressTrie
	trieV6 *ipaddr.IPv6AddressTrie
	count  int
}

// NewWhitelist returns an empty whitelist; Contains is always false.
func NewWhitelist() *Whitelist {
	return &Whitelist{
		trieV4: &ipaddr.IPv4AddressTrie{},
		trieV6: &ipaddr.IPv6AddressTrie{},
	}
}

// LoadWhitelist reads one entry per line: a single address or a CIDR block.
// Blank lines and # comments are ignored; invalid entries are skipped with
// a warning. A missing file is not an error: monitoring proceeds with an
// empty whitelist.
func LoadWhitelist(path string) (*Whitelist, error) {
	wl := NewWhitelist()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", path).Msg("Whitelist file not found, continuing with empty whitelist")
			return wl, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		if err := wl.Add(entry); err != nil {
			log.Warn().
				Int("line", lineNum).
				Str("entry", entry).
				Msg("Invalid whitelist entry ignored")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	log.Debug().Int("count", wl.count).Str("file", path).Msg("Whitelist loaded")
	return wl, nil
}

// Add inserts one address or CIDR block.
func (w *Whitelist) Add(entry string) error {
	addr, err := ipaddr.NewIPAddressString(entry).ToAddress()
	if err != nil {
		return err
	}
	if addr.IsIPv4() {
		w.trieV4.Add(addr.ToIPv4())
	} else {
		w.trieV6.Add(addr.ToIPv6())
	}
	w.count++
	return nil
}

// Contains reports whether the address matches any whitelist entry, exactly
// or by CIDR containment. Zone suffixes are stripped before comparison;
// unparseable addresses are never whitelisted.
func (w *Whitelist) Contains(address string) bool {
	addr, err := ipaddr.NewIPAddressString(domain.NormalizeAddress(address)).ToAddress()
	if err != nil {
		return false
	}
	if addr.IsIPv4() {
		return w.trieV4.ElementContains(addr.ToIPv4())
	}
	return w.trieV6.ElementContains(addr.ToIPv6())
}

// Count returns the number of loaded entries.
func (w *Whitelist) Count() int {
	return w.count
}

// IsInternal reports whether the address belongs to a private, loopback or
// link-local range.
func IsInternal(address string) bool {
	addr, err := netip.ParseAddr(domain.NormalizeAddress(address))
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

// AddressFilter combines whitelist and internal-range exclusion in the
// order the aggregator applies them.
type AddressFilter struct {
	Whitelist       *Whitelist
	IgnoreWhitelist bool
	IgnoreInternal  bool
}

// Excluded implements ports.AddressFilter.
func (f *AddressFilter) Excluded(address string) (bool, string) {
	if f.IgnoreWhitelist && f.Whitelist != nil && f.Whitelist.Contains(address) {
		return true, "whitelisted"
	}
	if f.IgnoreInternal && IsInternal(address) {
		return true, "internal"
	}
	return false, ""
}
