package exporter

import (
	"time"

	"github.com/obsidianstack/amplifi-exporter/internal/poller"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status         string    `json:"status"` // ok | starting | backoff
	Source         string    `json:"source"`
	State          string    `json:"state"`
	IntervalSec    float64   `json:"interval_sec"`
	Connects       int       `json:"connects"`
	Polls          int       `json:"polls"`
	DecodeFailures int       `json:"decode_failures"`
	LastPoll       time.Time `json:"last_poll"`
	LastDurationMs float64   `json:"last_duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toHealthResponse(st poller.Status) HealthResponse {
	resp := HealthResponse{
		Source:         st.Source,
		State:          string(st.State),
		IntervalSec:    st.Interval.Seconds(),
		Connects:       st.Connects,
		Polls:          st.Polls,
		DecodeFailures: st.DecodeFailures,
		LastPoll:       st.LastPoll,
		LastDurationMs: float64(st.LastDuration) / float64(time.Millisecond),
		LastError:      st.LastError,
	}
	switch {
	case st.State == poller.StateBackoff:
		resp.Status = "backoff"
	case st.Polls == 0:
		resp.Status = "starting"
	default:
		resp.Status = "ok"
	}
	return resp
}
