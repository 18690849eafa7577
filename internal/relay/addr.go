package relay

import (
	"net"
	"strconv"
)

// portOf extracts the port from a listen address, 0 if it has none
func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return p
}
