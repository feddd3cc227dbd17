package executor

import (
	"context"
	"net"
	"net/url"

	"github.com/coreflow/coreflow/internal/coreerr"
)

// checkSSRF resolves the target host and rejects it if it falls in a
// private, loopback, link-local, or cloud-metadata range, unless the
// caller has explicitly opted in to allowPrivate.
func checkSSRF(ctx context.Context, rawURL string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return coreerr.Validation("invalid URL %q: %v", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return coreerr.Validation("URL %q has no host", rawURL)
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return coreerr.ValidationWrap(err, "failed to resolve host %q", host)
	}
	if len(ips) == 0 {
		return coreerr.Validation("host %q did not resolve to any address", host)
	}

	for _, ip := range ips {
		if isBlockedIP(ip.IP) {
			return coreerr.Validation("target %q (%s) resolves to a disallowed private/internal address", rawURL, ip.IP)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() {
		return true
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return true
	}
	return false
}
