package sim

import (
	"sync"

	"depthseeker/internal/telemetry"
)

const (
	commandBufferOccupancyMetricKey = "sim_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "sim_command_buffer_overflow_total"
)

// CommandBuffer is a fixed-size FIFO ring of commands waiting for the next
// tick. Any number of goroutines may Push; only the loop drains it.
type CommandBuffer struct {
	mu      sync.Mutex
	slots   []Command
	start   int
	size    int
	metrics telemetry.Metrics
}

// NewCommandBuffer allocates a ring with room for capacity commands (at
// least one).
func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &CommandBuffer{slots: make([]Command, max(capacity, 1)), metrics: metrics}
}

func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.slots)
}

// Push appends cmd, or reports false and counts an overflow when full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.slots) {
		b.metrics.Add(commandBufferOverflowMetricKey, 1)
		return false
	}
	b.slots[b.index(b.size)] = cmd
	b.size++
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.size))
	return true
}

// Drain removes and returns every staged command, oldest first.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, 0, b.size)
	for i := 0; i < b.size; i++ {
		slot := b.index(i)
		out = append(out, b.slots[slot])
		b.slots[slot] = Command{}
	}
	b.start = b.index(b.size)
	b.size = 0
	b.metrics.Store(commandBufferOccupancyMetricKey, 0)
	return out
}

func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *CommandBuffer) index(offset int) int {
	return (b.start + offset) % len(b.slots)
}
