package server

import (
	"fmt"
	"net"
	"os"
)

// LocalOrigins returns the origins a web page served from this machine on
// webPort can present: the outbound IP and the hostname (bare and .local),
// each with and without the port.
func LocalOrigins(webPort int) []string {
	var origins []string
	if ip := outboundIP(); ip != "" {
		origins = append(origins, hostOrigins(ip, webPort)...)
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		origins = append(origins, hostOrigins(host, webPort)...)
		origins = append(origins, hostOrigins(host+".local", webPort)...)
	}
	return origins
}

// MergeOrigins appends extra to base, dropping duplicates.
func MergeOrigins(base []string, extra ...string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, o := range append(append([]string(nil), base...), extra...) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		merged = append(merged, o)
	}
	return merged
}

func hostOrigins(host string, port int) []string {
	return []string{
		"http://" + host,
		fmt.Sprintf("http://%s:%d", host, port),
	}
}

// outboundIP finds the address used for outbound traffic. Dialing UDP sends
// no packets; it only selects a route.
func outboundIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return ""
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}
