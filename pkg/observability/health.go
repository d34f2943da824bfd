package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

// ReadyCheck reports whether a subsystem can serve requests.
type ReadyCheck func(ctx context.Context) error

type probeBody struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// HealthHandler answers liveness probes. A running process is alive.
func HealthHandler() http.Handler {
	return ReadyHandler()
}

// ReadyHandler answers readiness probes: 200 when every check passes,
// otherwise 503 with the first failure as the reason.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		code, body := http.StatusOK, probeBody{Status: "ok"}

		for _, check := range checks {
			if err := check(req.Context()); err != nil {
				code, body = http.StatusServiceUnavailable, probeBody{Status: "unavailable", Reason: err.Error()}

				break
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)

		// The prober hung up if this fails.
		_ = json.NewEncoder(rw).Encode(body)
	})
}
