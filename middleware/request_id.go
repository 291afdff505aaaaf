package middleware

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// RequestIDHeader, bridge isteklerinin korelasyon header'ı.
const RequestIDHeader = "X-Request-ID"

// statusRecorder, yazılan status code'u loglamak için yakalar.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestID, her isteğe id atar (renderer gönderdiyse onu kullanır) ve
// isteği id, status ve süre ile loglar.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			glog.Warningf("[bridge] %s %s %s -> %d (%s)", id, r.Method, r.URL.Path, rec.status, time.Since(start))
			return
		}
		glog.V(2).Infof("[bridge] %s %s %s -> %d (%s)", id, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
