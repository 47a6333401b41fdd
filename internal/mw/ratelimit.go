package mw

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client IP and forgets
// buckets that have been idle past the TTL.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*clientLimiter
	r   rate.Limit
	b   int
	ttl time.Duration
}

func newLimiterPool(r rate.Limit, burst int, ttl time.Duration) *limiterPool {
	return &limiterPool{m: make(map[string]*clientLimiter), r: r, b: burst, ttl: ttl}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	cl, ok := p.m[key]
	if ok {
		cl.lastSeen = time.Now()
		return cl.lim
	}
	lim := rate.NewLimiter(p.r, p.b)
	p.m[key] = &clientLimiter{lim: lim, lastSeen: time.Now()}
	return lim
}

func (p *limiterPool) gc() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		p.mu.Lock()
		for k, v := range p.m {
			if now.Sub(v.lastSeen) > p.ttl {
				delete(p.m, k)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit returns a per-IP token-bucket limiter middleware. Used on
// the credential endpoints to slow down guessing.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	pool := newLimiterPool(r, burst, 3*time.Minute)
	go pool.gc()
	return func(c *gin.Context) {
		if !pool.get(clientIP(c.Request.RemoteAddr)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
