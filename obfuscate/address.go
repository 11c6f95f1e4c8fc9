// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import "strings"

const (
	// IPv6Placeholder replaces every IPv6 address.
	IPv6Placeholder = "::1"

	// IPv4Mask replaces the last octet of an IPv4 address.
	IPv4Mask = "x"
)

// Address redacts one address, keeping its family. Bracketed or
// colon-bearing input is IPv6; four dot-separated parts are IPv4;
// anything else is returned unchanged.
func Address(addr string) string {
	if strings.HasPrefix(addr, "[") || strings.Contains(addr, ":") {
		return IPv6Placeholder
	}
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return addr
	}
	parts[3] = IPv4Mask
	return strings.Join(parts, ".")
}

// HostPort redacts the address part of a combined "address:port"
// value. The port is kept. A bracketed IPv6 address keeps its
// brackets: "[2001:db8::1]:443" becomes "[::1]:443".
func HostPort(value string) string {
	separator := strings.LastIndex(value, ":")
	if separator < 0 {
		return Address(value)
	}
	host, port := value[:separator], value[separator+1:]
	if len(host) >= 2 && strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = "[" + Address(host[1:len(host)-1]) + "]"
	} else {
		host = Address(host)
	}
	return host + ":" + port
}
