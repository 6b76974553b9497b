// Package clientip extracts the client IP address from proxy headers.
//
// Headers are checked in this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost address)
//  4. X-Real-IP
//
// Every candidate is validated with net/netip and normalized. Invalid values and
// the unspecified address are skipped. When no header yields an address, the
// fallback passed by the caller (usually the connection's remote address) is
// returned with its port stripped.
//
//	ip := clientip.GetIP(req.Header(), "")
//	if ip == "" {
//		ip = "unknown"
//	}
package clientip
