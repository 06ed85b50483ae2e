package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader carries the guest session token for clients without cookies
const SessionHeader = "X-Session-Token"

const sessionTokenKey = "guest_session_token"

var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// GuestSessionConfig holds guest session cookie settings
type GuestSessionConfig struct {
	Cookie config.CookieConfig
	TTL    time.Duration
	// Issue creates a token when the request carries none
	Issue bool
}

// GuestSession resolves the guest cart token from the X-Session-Token header
// or the session cookie. Signed-in callers are left alone, but their token
// is still read so login can merge the guest cart.
func GuestSession(cfg GuestSessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ReadSessionToken(c, cfg.Cookie.Name)
		if token == "" && cfg.Issue && GetClaims(c) == nil {
			token = strings.ReplaceAll(uuid.NewString(), "-", "")
			setSessionCookie(c, cfg, token)
			c.Header(SessionHeader, token)
		}
		if token != "" {
			c.Set(sessionTokenKey, token)
		}
		c.Next()
	}
}

// ReadSessionToken returns a well-formed token from header or cookie, or ""
func ReadSessionToken(c *gin.Context, cookieName string) string {
	if token := strings.TrimSpace(c.GetHeader(SessionHeader)); sessionTokenPattern.MatchString(token) {
		return token
	}
	if cookieName == "" {
		return ""
	}
	if token, err := c.Cookie(cookieName); err == nil && sessionTokenPattern.MatchString(token) {
		return token
	}
	return ""
}

// GetSessionToken returns the token resolved by GuestSession
func GetSessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}

func setSessionCookie(c *gin.Context, cfg GuestSessionConfig, token string) {
	if cfg.Cookie.Name == "" {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    token,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		MaxAge:   int(cfg.TTL.Seconds()),
		Secure:   cfg.Cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite(cfg.Cookie.SameSite),
	})
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
