package server

import (
	"net"
	"sync"

	"github.com/lawnchairsociety/dungeongen/internal/config"
)

// ConnLimiter bounds concurrent generation sessions per client IP and in
// total. A limit of zero is unlimited.
type ConnLimiter struct {
	mu       sync.Mutex
	sessions map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

// NewConnLimiter creates a limiter from the server's connection settings.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		sessions: make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// TryAcquire takes a session slot for ip, reporting false when either
// limit is reached.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.total >= c.maxTotal {
		return false
	}
	if c.maxPerIP > 0 && c.sessions[ip] >= c.maxPerIP {
		return false
	}

	c.sessions[ip]++
	c.total++
	return true
}

// Release gives back a slot taken by TryAcquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.sessions[ip]
	if n == 0 {
		return
	}
	if n == 1 {
		delete(c.sessions, ip)
	} else {
		c.sessions[ip] = n - 1
	}
	c.total--
}

// Stats returns the open sessions and the number of distinct IPs holding them.
func (c *ConnLimiter) Stats() (total int, ips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, len(c.sessions)
}

// Sessions returns the open sessions for ip.
func (c *ConnLimiter) Sessions(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[ip]
}

// extractIP strips the port from an ip:port remote address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
