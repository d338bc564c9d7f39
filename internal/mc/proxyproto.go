package mc

import (
	"fmt"
	"net"
)

// ProxyV1Header builds a PROXY protocol v1 header announcing the real
// client address, sent as the first bytes of a spliced connection.
func ProxyV1Header(src, dst net.Addr) string {
	srcTCP, ok1 := src.(*net.TCPAddr)
	dstTCP, ok2 := dst.(*net.TCPAddr)
	if !ok1 || !ok2 {
		return "PROXY UNKNOWN\r\n"
	}

	family := "TCP4"
	if srcTCP.IP.To4() == nil {
		family = "TCP6"
	}

	return fmt.Sprintf(
		"PROXY %s %s %s %d %d\r\n",
		family, srcTCP.IP, dstTCP.IP, srcTCP.Port, dstTCP.Port,
	)
}

// LocalProxyV1Header builds the header for proxy-originated connections
// like status probes, where both ends are the proxy itself.
func LocalProxyV1Header(conn net.Conn) string {
	return ProxyV1Header(conn.LocalAddr(), conn.RemoteAddr())
}
