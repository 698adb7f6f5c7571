package iputil

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickAddress(t *testing.T) {
	ips := []netip.Addr{
		netip.MustParseAddr("fe80::1"),
		netip.MustParseAddr("169.254.0.9"),
		netip.MustParseAddr("10.0.0.5"),
		netip.MustParseAddr("2001:db8::5"),
	}

	ip, ok := PickAddress(ips, netip.Addr.Is4)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", ip.String())

	ip, ok = PickAddress(ips, netip.Addr.Is6)
	assert.True(t, ok)
	assert.Equal(t, "2001:db8::5", ip.String())

	ip, ok = PickAddress(ips[:1], netip.Addr.Is6)
	assert.True(t, ok)
	assert.Equal(t, "fe80::1", ip.String())

	_, ok = PickAddress(ips[:1], netip.Addr.Is4)
	assert.False(t, ok)
}

func TestConvertNetIP(t *testing.T) {
	assert.Equal(t, netip.MustParseAddr("192.168.0.1"), ConvertNetIP(net.ParseIP("192.168.0.1")))
	assert.Equal(t, netip.MustParseAddr("2001:db8::1"), ConvertNetIP(net.ParseIP("2001:db8::1")))
}

func TestIPListContains(t *testing.T) {
	list := IPList{netip.MustParseAddr("10.1.1.1")}
	assert.True(t, list.Contains(netip.MustParseAddr("10.1.1.1")))
	assert.True(t, list.Contains(netip.MustParseAddr("127.0.0.1")))
	assert.False(t, list.Contains(netip.MustParseAddr("10.1.1.2")))
	assert.Equal(t, []string{"10.1.1.1"}, list.Strings())
}
