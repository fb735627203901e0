package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// StatsSnapshot is what /debug/stats serves.
type StatsSnapshot struct {
	Persisted       uint64 `json:"persisted"`
	Emitted         uint64 `json:"emitted"`
	Dropped         uint64 `json:"dropped"`
	Pushed          uint64 `json:"pushed"`
	PushFailed      uint64 `json:"push_failed"`
	FilteredMembers uint64 `json:"filtered_non_members"`
	WorkerRestarts  uint64 `json:"worker_restarts"`
	Connections     int    `json:"connections"`
	QueueSize       int    `json:"queue_size"`
	QueueCapacity   int    `json:"queue_capacity"`
	AllocMemMb      uint64 `json:"alloc_mem_mb"`
	NumGC           uint32 `json:"num_gc"`
	NumGoroutine    int    `json:"num_goroutine"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

// DeliveryStats counts what happens between a durable write and the sockets.
// Every method is safe for concurrent use.
type DeliveryStats struct {
	startedAt       time.Time
	persisted       atomic.Uint64
	emitted         atomic.Uint64
	dropped         atomic.Uint64
	pushed          atomic.Uint64
	pushFailed      atomic.Uint64
	filteredMembers atomic.Uint64
	workerRestarts  atomic.Uint64
}

func NewDeliveryStats() *DeliveryStats {
	return &DeliveryStats{startedAt: time.Now()}
}

func (s *DeliveryStats) IncrPersisted()       { s.persisted.Add(1) }
func (s *DeliveryStats) IncrEmitted()         { s.emitted.Add(1) }
func (s *DeliveryStats) IncrDropped()         { s.dropped.Add(1) }
func (s *DeliveryStats) IncrPushed()          { s.pushed.Add(1) }
func (s *DeliveryStats) IncrPushFailed()      { s.pushFailed.Add(1) }
func (s *DeliveryStats) IncrFilteredMember()  { s.filteredMembers.Add(1) }
func (s *DeliveryStats) IncrWorkerRestarted() { s.workerRestarts.Add(1) }

// Snapshot reads the counters and the Go runtime memory stats.
// connections and queue are supplied by the caller who owns them.
func (s *DeliveryStats) Snapshot(connections, queueSize, queueCapacity int) StatsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return StatsSnapshot{
		Persisted:       s.persisted.Load(),
		Emitted:         s.emitted.Load(),
		Dropped:         s.dropped.Load(),
		Pushed:          s.pushed.Load(),
		PushFailed:      s.pushFailed.Load(),
		FilteredMembers: s.filteredMembers.Load(),
		WorkerRestarts:  s.workerRestarts.Load(),
		Connections:     connections,
		QueueSize:       queueSize,
		QueueCapacity:   queueCapacity,
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
		NumGoroutine:    runtime.NumGoroutine(),
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
	}
}
