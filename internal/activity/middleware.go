package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

const clientContextHeader = "X-Client-Context"

// recordTimeout bounds the insert so a slow store cannot hold the request
// goroutine.
const recordTimeout = 5 * time.Second

// Middleware logs every request after its response is written, anonymous
// ones included. Identity comes from the request context, so the token is
// never decoded a second time here.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqCtx, recorder := shared.ContextWithIdentityRecorder(r.Context())
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(reqCtx))

			entry := Entry{
				Method:      r.Method,
				Path:        r.URL.Path,
				StatusCode:  ww.Status(),
				RequestTime: start,
			}
			if identity, ok := recorder.Identity(); ok {
				entry.UserID = &identity.UserID
			}
			if ip := r.RemoteAddr; ip != "" {
				entry.IPAddress = &ip
			}
			if ua := r.UserAgent(); ua != "" {
				entry.UserAgent = &ua
			}
			if cc := r.Header.Get(clientContextHeader); cc != "" {
				entry.ClientContext = &cc
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
			defer cancel()
			service.Record(ctx, entry)
		})
	}
}
