package middleware

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/vintagehub/market-api/internal/auth"
	"github.com/vintagehub/market-api/pkg/response"
)

// TokenVerifier resolves a bearer access token into a user ID.
// The auth service implements this.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.RWMutex

	// Configure limits per endpoint type
	authLimit   = rate.Limit(10.0 / 60.0)  // 10 requests per minute
	tradeLimit  = rate.Limit(60.0 / 60.0)  // 60 requests per minute
	browseLimit = rate.Limit(300.0 / 60.0) // 300 requests per minute
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func getLimiter(path, clientIP string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	key := clientIP + ":" + path
	v, exists := visitors[key]

	if !exists {
		var limit rate.Limit
		switch {
		case strings.HasPrefix(path, "/api/v1/auth"):
			limit = authLimit
		case strings.HasPrefix(path, "/api/v1/offers"),
			strings.HasPrefix(path, "/api/v1/swaps"),
			strings.HasPrefix(path, "/api/v1/transactions"):
			limit = tradeLimit
		case strings.HasPrefix(path, "/api/v1/listings"),
			strings.HasPrefix(path, "/api/v1/regions"),
			strings.HasPrefix(path, "/api/v1/categories"),
			strings.HasPrefix(path, "/api/v1/users"):
			limit = browseLimit
		default:
			limit = rate.Inf // No limit for other paths
		}

		v = &visitor{
			limiter:  rate.NewLimiter(limit, 1), // burst of 1
			lastSeen: time.Now(),
		}
		visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, ip)
			}
		}
		mu.Unlock()
	}
}

func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			userID = c.ClientIP()
		}

		limiter := getLimiter(c.FullPath(), userID)
		if !limiter.Allow() {
			response.BadRequest(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAuth validates the Authorization bearer token through the injected
// verifier and stores the resolved user ID in the context under "userID".
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearerToken := strings.Split(c.GetHeader("Authorization"), " ")
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "bearer") {
			response.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}

		userID, err := verifier.VerifyAccess(bearerToken[1])
		if err != nil {
			if errors.Is(err, auth.ErrWrongTokenKind) {
				response.Unauthorized(c, "Invalid token type")
			} else {
				response.Unauthorized(c, "Invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
