package scheduler

import (
	"sync/atomic"
	"time"

	"junction/core/logger"
)

// Heartbeat is a cron job that logs its run count. It is registered in the
// service catalog so schedules can use it without custom code.
type Heartbeat struct {
	logger  logger.Logger `inject:""`
	runs    atomic.Int64
	started time.Time
}

// NewHeartbeat creates the heartbeat job
func NewHeartbeat() any {
	return &Heartbeat{started: time.Now()}
}

func (h *Heartbeat) SetLogger(l logger.Logger) {
	h.logger = l
}

func (h *Heartbeat) Run() {
	runs := h.runs.Add(1)
	if h.logger != nil {
		h.logger.Info("Heartbeat",
			logger.Int("runs", int(runs)),
			logger.Duration("uptime", time.Since(h.started).Round(time.Second)))
	}
}

// Runs returns how many times the job ran. Cron may call Run concurrently.
func (h *Heartbeat) Runs() int {
	return int(h.runs.Load())
}
