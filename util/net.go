// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import "net"

// NormalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func NormalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// NormalizeAddresses applies NormalizeAddress to every entry and drops
// duplicates while preserving order.
func NormalizeAddresses(addrs []string, defaultPort string) []string {
	seen := make(map[string]struct{}, len(addrs))
	res := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		addr = NormalizeAddress(addr, defaultPort)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		res = append(res, addr)
	}
	return res
}
