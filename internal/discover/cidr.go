// Package discover finds SSH hosts on a network range.
package discover

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxAddresses bounds the size of a scanned range.
const MaxAddresses = 1 << 16

// Host is an address that accepted a TCP connection on Port.
type Host struct {
	Addr netip.Addr
	Port int
}

func (h Host) String() string { return h.Addr.String() }

// Scanner dials every usable address of an IPv4 prefix.
type Scanner struct {
	Port        int
	Concurrency int
	DialTimeout time.Duration
}

// Scan returns the addresses of prefix with Port open, sorted. Addresses not
// dialed before ctx ended are left out; the context error is returned with
// the hosts found so far.
func (s Scanner) Scan(ctx context.Context, cidr string) ([]Host, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	addrs, err := Addresses(prefix)
	if err != nil {
		return nil, err
	}

	port := s.Port
	if port <= 0 {
		port = 22
	}
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	var (
		mu    sync.Mutex
		found []Host
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	dialer := net.Dialer{Timeout: timeout}
	for _, addr := range addrs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			conn, err := dialer.DialContext(gctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(port)))
			if err != nil {
				return nil
			}
			conn.Close()
			mu.Lock()
			found = append(found, Host{Addr: addr, Port: port})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	slices.SortFunc(found, func(a, b Host) int { return a.Addr.Compare(b.Addr) })
	return found, ctx.Err()
}

// Addresses lists the usable IPv4 addresses of prefix. The network and
// broadcast addresses are skipped except for /31 and /32.
func Addresses(prefix netip.Prefix) ([]netip.Addr, error) {
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("only IPv4 ranges can be scanned, got %s", prefix)
	}
	hostBits := 32 - prefix.Bits()
	if hostBits > 16 {
		return nil, fmt.Errorf("range %s has more than %d addresses", prefix, MaxAddresses)
	}

	size := 1 << hostBits
	first, last := 0, size-1
	if hostBits >= 2 {
		first, last = 1, size-2
	}

	addrs := make([]netip.Addr, 0, last-first+1)
	addr := prefix.Addr()
	for i := 0; i <= last; i++ {
		if i >= first {
			addrs = append(addrs, addr)
		}
		addr = addr.Next()
	}
	return addrs, nil
}
