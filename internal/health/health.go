package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/austindbirch/taskpulse/internal/pipeline"
)

type Status struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Database bool   `json:"database,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
}

// HTTPHandler reports service health: database reachability plus the
// pipeline health tier. A nil pool skips the DB probe; a nil status func
// skips the pipeline tier.
func HTTPHandler(pool *pgxpool.Pool, pipelineStatus func() pipeline.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Status{OK: true, Message: "ok", Database: true}

		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				st.OK = false
				st.Message = "db ping failed"
				st.Database = false
			}
		}

		if pipelineStatus != nil {
			ps := pipelineStatus()
			st.Pipeline = string(ps.Health)
			if ps.Health == pipeline.TierError {
				st.OK = false
				if st.Message == "ok" {
					st.Message = "pipeline unhealthy"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !st.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(st)
	}
}
