package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWhitelist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadWhitelist(t *testing.T) {
	path := writeWhitelist(t, `
# monitoring hosts
10.0.0.5
192.168.1.0/24

2001:db8::/32
`)

	wl, err := LoadWhitelist(path)
	require.NoError(t, err)
	assert.Equal(t, 3, wl.Count())

	assert.True(t, wl.Contains("10.0.0.5"))
	assert.True(t, wl.Contains("192.168.1.77"), "CIDR containment")
	assert.True(t, wl.Contains("2001:db8::1"), "IPv6 CIDR containment")

	assert.False(t, wl.Contains("10.0.0.6"))
	assert.False(t, wl.Contains("192.168.2.1"))
	assert.False(t, wl.Contains("not-an-address"))
}

func TestLoadWhitelistSkipsInvalidEntries(t *testing.T) {
	path := writeWhitelist(t, "10.0.0.1\nnot-an-ip\n300.1.1.1\n10.0.0.2\n")

	wl, err := LoadWhitelist(path)
	require.NoError(t, err)
	assert.Equal(t, 2, wl.Count())
	assert.True(t, wl.Contains("10.0.0.1"))
	assert.True(t, wl.Contains("10.0.0.2"))
}

func TestLoadWhitelistMissingFile(t *testing.T) {
	wl, err := LoadWhitelist(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, wl.Count())
	assert.False(t, wl.Contains("10.0.0.1"))
}

func TestContainsStripsZone(t *testing.T) {
	wl := NewWhitelist()
	require.NoError(t, wl.Add("fe80::1"))

	assert.True(t, wl.Contains("fe80::1%eth0"))
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		address  string
		internal bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.0.200", true},
		{"127.0.0.1", true},
		{"169.254.10.1", true},
		{"fd00::1", true},
		{"::1", true},
		{"fe80::1%eth0", true},
		{"8.8.8.8", false},
		{"203.0.113.7", false},
		{"2001:4860:4860::8888", false},
		{"garbage", false},
	}

	for _, tc := range tests {
		t.Run(tc.address, func(t *testing.T) {
			assert.Equal(t, tc.internal, IsInternal(tc.address))
		})
	}
}

func TestAddressFilterOrderAndReasons(t *testing.T) {
	wl := NewWhitelist()
	// 10.0.0.5 is both whitelisted and internal; the whitelist reason wins
	// because that check runs first.
	require.NoError(t, wl.Add("10.0.0.5"))

	f := &AddressFilter{Whitelist: wl, IgnoreWhitelist: true, IgnoreInternal: true}

	skip, reason := f.Excluded("10.0.0.5")
	assert.True(t, skip)
	assert.Equal(t, "whitelisted", reason)

	skip, reason = f.Excluded("10.0.0.6")
	assert.True(t, skip)
	assert.Equal(t, "internal", reason)

	skip, _ = f.Excluded("203.0.113.7")
	assert.False(t, skip)
}

func TestAddressFilterDisabled(t *testing.T) {
	wl := NewWhitelist()
	require.NoError(t, wl.Add("10.0.0.5"))

	f := &AddressFilter{Whitelist: wl}

	// Both exclusions off: nothing is filtered regardless of membership.
	skip, _ := f.Excluded("10.0.0.5")
	assert.False(t, skip)
	skip, _ = f.Excluded("127.0.0.1")
	assert.False(t, skip)
}
