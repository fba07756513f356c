// Package observability aggregates live counters and process metrics
// for the stats endpoint and the debug inspector.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"

	"pairchat/domain/event"
)

// ServerStats is the payload served by the stats endpoint.
type ServerStats struct {
	// --- DOMAIN METRICS ---
	TotalUsers    int `json:"total_users"`
	TotalMessages int `json:"total_messages"`
	OnlineUsers   int `json:"online_users"`

	// --- SINCE-START COUNTERS ---
	MessagesSent        uint64 `json:"messages_sent"`
	MessagesRead        uint64 `json:"messages_read"`
	ReadReceiptBatches  uint64 `json:"read_receipt_batches"`
	ReactionToggles     uint64 `json:"reaction_toggles"`
	PresenceTransitions uint64 `json:"presence_transitions"`
	TypingSignals       uint64 `json:"typing_signals"`

	// --- SYSTEM METRICS ---
	UptimeSeconds uint64  `json:"uptime_seconds"`
	RamBytes      uint64  `json:"ram_bytes"`
	CPUPercent    float64 `json:"cpu_percent"`
	PidStatus     string  `json:"pid_status"`
	AllocMemMb    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	Goroutines    int     `json:"goroutines"`
}

// StatsCollector counts event traffic. It runs as a permanent sink on
// the fan-out worker, so every delivered event is observed exactly once
// regardless of how many connections it reached.
type StatsCollector struct {
	log     *slog.Logger
	started time.Time
	proc    *process.Process

	messagesSent        uint64
	messagesRead        uint64
	readReceiptBatches  uint64
	reactionToggles     uint64
	presenceTransitions uint64
	typingSignals       uint64
}

func NewStatsCollector(log *slog.Logger) *StatsCollector {
	c := &StatsCollector{log: log, started: time.Now()}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	} else {
		c.proc = p
	}
	return c
}

// Consume implements the EventSink interface.
func (c *StatsCollector) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageCreated:
		atomic.AddUint64(&c.messagesSent, 1)
	case event.ConversationRead:
		atomic.AddUint64(&c.readReceiptBatches, 1)
		atomic.AddUint64(&c.messagesRead, uint64(len(evt.MessageIDs)))
	case event.ReactionUpdated:
		atomic.AddUint64(&c.reactionToggles, 1)
	case event.UserOnline, event.UserOffline:
		atomic.AddUint64(&c.presenceTransitions, 1)
	case event.TypingStarted, event.TypingStopped:
		atomic.AddUint64(&c.typingSignals, 1)
	}
	return nil
}

// Collect fills the since-start counters and the system metrics. Domain
// totals (users, messages, online) are the caller's responsibility.
func (c *StatsCollector) Collect() ServerStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := ServerStats{
		MessagesSent:        atomic.LoadUint64(&c.messagesSent),
		MessagesRead:        atomic.LoadUint64(&c.messagesRead),
		ReadReceiptBatches:  atomic.LoadUint64(&c.readReceiptBatches),
		ReactionToggles:     atomic.LoadUint64(&c.reactionToggles),
		PresenceTransitions: atomic.LoadUint64(&c.presenceTransitions),
		TypingSignals:       atomic.LoadUint64(&c.typingSignals),
		UptimeSeconds:       uint64(time.Since(c.started).Seconds()),
		AllocMemMb:          memStats.Alloc / 1024 / 1024,
		NumGC:               memStats.NumGC,
		Goroutines:          runtime.NumGoroutine(),
		PidStatus:           "UNKNOWN",
	}

	if c.proc != nil {
		if memInfo, err := c.proc.MemoryInfo(); err == nil {
			stats.RamBytes = memInfo.RSS
		}
		if cpuPercent, err := c.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpuPercent
		}
		if status, err := c.proc.Status(); err == nil {
			stats.PidStatus = status
		}
	}
	return stats
}
