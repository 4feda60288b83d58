package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Options configures the CORS middleware.
type Options struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

// NormalizeOrigin is the comparison form of an origin: trimmed and without
// trailing slashes.
func NormalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

// New returns a CORS middleware that honors a list of allowed origins. An empty
// list emits no CORS headers.
func New(opts Options) gin.HandlerFunc {
	originSet := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = NormalizeOrigin(origin); origin != "" {
			originSet[origin] = struct{}{}
		}
	}

	methods := opts.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodPost, http.MethodOptions}
	}
	headers := opts.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type"}
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && hasOrigin(originSet, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", allowMethods)
			c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			c.Writer.Header().Set("Access-Control-Max-Age", maxAgeSeconds)
		}
		c.Writer.Header().Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	_, ok := originSet[NormalizeOrigin(origin)]
	return ok
}
