package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// untracedPaths are polled by probes and scrapers and only add noise to traces.
var untracedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
	"/ready":   {},
}

func shouldTrace(r *http.Request) bool {
	_, skip := untracedPaths[r.URL.Path]
	return !skip
}

func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(shouldTrace))
}
