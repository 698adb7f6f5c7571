package iputil

import (
	"fmt"
	"net"
	"net/netip"
	"slices"

	"github.com/heyvito/gateway"
)

// ErrNoAddress indicates that no usable local address was found.
var ErrNoAddress = fmt.Errorf("no address could be detected")

// IPList is a list of local addresses.
type IPList []netip.Addr

// Contains returns whether ip belongs to the local host.
func (i IPList) Contains(ip netip.Addr) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}
	return slices.Contains(i, ip.Unmap())
}

// Strings returns the textual form of every address in the list.
func (i IPList) Strings() []string {
	out := make([]string, len(i))
	for idx, ip := range i {
		out[idx] = ip.String()
	}
	return out
}

// LocalAddresses lists the addresses of every local interface.
func LocalAddresses() (IPList, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("listing interface addresses: %w", err)
	}
	out := make(IPList, 0, len(addrs))
	for _, v := range addrs {
		if ipNet, ok := v.(*net.IPNet); ok {
			out = append(out, ConvertNetIP(ipNet.IP))
		}
	}
	return out, nil
}

// PickAddress returns the first address of ips matching filter, preferring
// global addresses over link-local ones.
func PickAddress(ips []netip.Addr, filter func(netip.Addr) bool) (netip.Addr, bool) {
	var linkLocal netip.Addr
	for _, ip := range ips {
		if !filter(ip) {
			continue
		}
		if !ip.IsLinkLocalUnicast() {
			return ip, true
		}
		if !linkLocal.IsValid() {
			linkLocal = ip
		}
	}
	return linkLocal, linkLocal.IsValid()
}

// DefaultAddress returns an address of an interface holding a default
// route, of the same family as controller.
func DefaultAddress(controller netip.Addr) (netip.Addr, error) {
	ips, err := gateway.FindDefaultIPs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("finding default addresses: %w", err)
	}
	filter := netip.Addr.Is4
	if controller.Unmap().Is6() {
		filter = netip.Addr.Is6
	}
	if ip, ok := PickAddress(ips, filter); ok {
		return ip, nil
	}
	return netip.Addr{}, ErrNoAddress
}

// ConvertNetIP converts a net.IP into a netip.Addr, unmapping IPv4
// addresses.
func ConvertNetIP(in net.IP) netip.Addr {
	if ip4 := in.To4(); ip4 != nil {
		return netip.AddrFrom4([4]byte(ip4))
	}
	return netip.AddrFrom16([16]byte(in.To16()))
}
