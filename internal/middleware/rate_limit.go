package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/metrics"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Bucket é um limite por IP aplicado a um grupo de rotas.
type Bucket struct {
	Name  string
	Rate  rate.Limit
	Burst int
}

var (
	DefaultBucket = Bucket{Name: "default", Rate: 10, Burst: 20}
	// Login e cadastro disparam bcrypt e inferência facial.
	AuthBucket = Bucket{Name: "auth", Rate: 1, Burst: 5}
)

var authPaths = []string{"/login_email", "/login_face", "/register"}

type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (rl *RateLimiter) allow(key string, b Bucket) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, found := rl.clients[key]
	if !found {
		c = &client{limiter: rate.NewLimiter(b.Rate, b.Burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()
	return c.limiter.AllowN(c.lastSeen, 1)
}

// Cleanup remove clientes inativos há mais de idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.clients {
		if rl.now().Sub(c.lastSeen) > idle {
			delete(rl.clients, key)
		}
	}
}

// Run limpa periodicamente até stop ser fechado.
func (rl *RateLimiter) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup(3 * time.Minute)
		case <-stop:
			return
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		bucket := DefaultBucket
		if r.Method == http.MethodPost && isAuthPath(r.URL.Path) {
			bucket = AuthBucket
		}

		if !rl.allow(bucket.Name+"|"+ip, bucket) {
			metrics.RateLimited.WithLabelValues(bucket.Name).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(1/float64(bucket.Rate)))))
			writeError(w, r, http.StatusTooManyRequests, i18n.TooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isAuthPath(path string) bool {
	for _, p := range authPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
