package rules

import "net"

// reservedIPv4Blocks are address ranges that must never be fetched from,
// independent of user configuration: loopback, RFC 1918 private space,
// link-local (including the cloud metadata endpoint 169.254.169.254),
// CGNAT, documentation and benchmarking nets, multicast and reserved
// space. User blacklists extend this set; nothing can shrink it.
var reservedIPv4Blocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.0.0.0/29",
		"192.0.2.0/24",
		"192.88.99.0/24",
		"192.168.0.0/16",
		"198.18.0.0/15",
		"198.51.100.0/24",
		"203.0.113.0/24",
		"224.0.0.0/4",
		"240.0.0.0/4",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("rules: bad reserved CIDR " + cidr + ": " + err.Error())
		}
		reservedIPv4Blocks = append(reservedIPv4Blocks, block)
	}
}

// IsReserved reports whether ip falls inside a built-in reserved range.
// Non-IPv4 addresses are always reserved: this module forces IPv4
// resolution and never connects over IPv6.
func IsReserved(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return true
	}
	for _, block := range reservedIPv4Blocks {
		if block.Contains(v4) {
			return true
		}
	}
	return false
}
