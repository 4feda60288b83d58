// Package tracking forwards operator-relevant failures to Sentry. Without a DSN
// every call is a no-op, so local runs and tests need no setup.
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/sardorbek21324/Kairos-team/pkg/config"
	"github.com/sardorbek21324/Kairos-team/pkg/middleware/requestid"
)

// Init configures the global Sentry hub and returns a flush function for
// shutdown.
func Init(cfg *config.Config, component string) (func(), error) {
	if cfg.Sentry.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Env,
		Release:     cfg.Sentry.Release,
		ServerName:  component,
	})
	if err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureError reports err with the supplied tags.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := requestid.FromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value.
func CapturePanic(ctx context.Context, recovered interface{}, tags map[string]string) {
	if recovered == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := requestid.FromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		hub.Recover(recovered)
	})
}

// GinMiddleware reports panics to Sentry and re-panics so gin.Recovery still
// writes the 500 response.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				CapturePanic(c.Request.Context(), r, map[string]string{"path": c.FullPath()})
				panic(r)
			}
		}()
		c.Next()
	}
}
