package server

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stocklink/stocklink/internal/logger"
)

// AuthMiddleware validates the API key on every non-public path. Key
// comparison is constant time so response latency leaks nothing about how
// much of a guessed key matched.
func AuthMiddleware(apiKey string, trustedProxies []string, detector *SuspiciousActivityDetector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				ip := extractIP(r, trustedProxies)
				detector.RecordFailedAuth(ip)

				logger.FromContext(r.Context()).Warn(LogMsgAuthFailed,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"has_key", providedKey != "",
					"ip", ip)

				http.Error(w, ErrMsgUnauthorized, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(path string) bool {
	for _, public := range PublicPaths {
		if strings.HasPrefix(path, public) {
			return true
		}
	}
	return false
}

// RequestSizeLimitMiddleware caps the request body so oversized sync
// payloads fail fast instead of buffering.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ipActivity is the per-IP tally inside the current tracking window.
type ipActivity struct {
	failedAuth int
	requests   int
}

// SuspiciousActivityDetector tracks per-IP failed auth and request volume
// inside a rolling window and blocks IPs that exceed the rate limit.
type SuspiciousActivityDetector struct {
	mu          sync.Mutex
	byIP        map[string]*ipActivity
	windowStart time.Time
}

func NewSuspiciousActivityDetector() *SuspiciousActivityDetector {
	return &SuspiciousActivityDetector{
		byIP:        make(map[string]*ipActivity),
		windowStart: time.Now(),
	}
}

// RecordFailedAuth tallies a failed authentication attempt and raises a
// security alert once the IP crosses the threshold.
func (s *SuspiciousActivityDetector) RecordFailedAuth(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity := s.activityFor(ip)
	activity.failedAuth++

	if activity.failedAuth >= failedAuthAlertThreshold {
		slog.Warn(SecurityAlertFailedAuth,
			"ip", ip,
			"count", activity.failedAuth)
	}
}

// RecordRequest tallies a request and reports whether the IP is still under
// the rate limit. Blocked requests are logged sampled, not one line each,
// so a flooding client cannot also flood the log.
func (s *SuspiciousActivityDetector) RecordRequest(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity := s.activityFor(ip)
	activity.requests++

	if activity.requests > requestsPerWindow {
		if activity.requests%blockedLogSampleRate == 0 {
			slog.Warn(SecurityAlertHighRate,
				"ip", ip,
				"count_in_window", activity.requests)
		}
		return false
	}
	return true
}

// activityFor rotates the window when it has expired and returns the tally
// for ip. Caller must hold the mutex.
func (s *SuspiciousActivityDetector) activityFor(ip string) *ipActivity {
	if time.Since(s.windowStart) > trackingWindow {
		s.byIP = make(map[string]*ipActivity)
		s.windowStart = time.Now()
	}

	activity, ok := s.byIP[ip]
	if !ok {
		activity = &ipActivity{}
		s.byIP[ip] = activity
	}
	return activity
}

// SecurityLoggingMiddleware enforces the per-IP rate limit before the
// request reaches any handler.
func SecurityLoggingMiddleware(trustedProxies []string, detector *SuspiciousActivityDetector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r, trustedProxies)

			if !detector.RecordRequest(ip) {
				http.Error(w, ErrMsgTooManyRequests, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP resolves the client address. X-Forwarded-For is honored only
// when the direct peer is a configured trusted proxy; anyone else could
// forge the header to dodge the rate limit.
func extractIP(r *http.Request, trustedProxies []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if isTrustedProxy(remoteIP, trustedProxies) {
		if forwarded := r.Header.Get(HeaderForwardedFor); forwarded != "" {
			// The rightmost entry is the hop the trusted proxy actually
			// talked to; earlier entries are client-supplied.
			hops := strings.Split(forwarded, ",")
			return strings.TrimSpace(hops[len(hops)-1])
		}
	}

	return remoteIP
}

func isTrustedProxy(remoteIP string, trustedProxies []string) bool {
	for _, proxy := range trustedProxies {
		if proxy == remoteIP {
			return true
		}
	}
	return false
}

// SecurityHeadersMiddleware sets the standard hardening headers on every
// response.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(HeaderContentType, HeaderValueNoSniff)
			w.Header().Set(HeaderFrameOptions, HeaderValueSameOrigin)
			w.Header().Set(HeaderXSSProtection, HeaderValueXSSBlock)
			w.Header().Set(HeaderReferrerPolicy, HeaderValueReferrerStrictOrigin)

			next.ServeHTTP(w, r)
		})
	}
}
