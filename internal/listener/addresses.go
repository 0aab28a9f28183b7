package listener

import (
	"net"
)

// NonInternalIPv4 returns the IPv4 address of every interface that is up and
// not a loopback, in interface order.
func NonInternalIPv4() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return []string{}
	}

	addresses := []string{}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip := ipv4(addr); ip != nil && !ip.IsLoopback() {
				addresses = append(addresses, ip.String())
			}
		}
	}
	return addresses
}

func ipv4(addr net.Addr) net.IP {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	return ip.To4()
}

// remoteHost strips the port from a request's RemoteAddr.
func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
