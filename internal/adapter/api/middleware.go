package api

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const localUserID = "userID"

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireJWT accepts Supabase access tokens (HS256, signed with the project
// JWT secret) and stores the subject as the user id.
func RequireJWT(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" || secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || claims.Subject == "" {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		c.Locals(localUserID, claims.Subject)
		return c.Next()
	}
}

// RequireServiceToken guards internal endpoints with a static bearer token.
func RequireServiceToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := bearerToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cl, ok := l.clients[key]
	if !ok {
		// opportunistic sweep of idle clients
		for k, v := range l.clients {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.clients, k)
			}
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

// ServiceTokenHeader lets internal callers, such as this gateway calling its
// own get-wisdom function, identify themselves.
const ServiceTokenHeader = "X-Service-Token"

// Handler limits by client IP. Requests whose ServiceTokenHeader matches a
// non-empty trusted token skip the limiter.
func (l *RateLimiter) Handler(trusted ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isTrusted(c.Get(ServiceTokenHeader), trusted) {
			return c.Next()
		}
		if !l.allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		}
		return c.Next()
	}
}

func isTrusted(got string, trusted []string) bool {
	if got == "" {
		return false
	}
	for _, t := range trusted {
		if t != "" && subtle.ConstantTimeCompare([]byte(got), []byte(t)) == 1 {
			return true
		}
	}
	return false
}
