package buffer

import (
	"fmt"

	"github.com/c360/syncmedia/errors"
)

// DefaultCapacity is the initial store size when none is configured.
const DefaultCapacity = 1024

// Accumulator is a growable byte store drained from the front.
type Accumulator struct {
	store    []byte
	size     int
	lastScan int

	stats   *Statistics
	metrics *bufferMetrics
}

// NewAccumulator creates an accumulator. Returns an error if metrics
// registration fails when metrics are requested.
func NewAccumulator(options ...Option) (*Accumulator, error) {
	opts := applyOptions(options...)

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Accumulator", "NewAccumulator", "metrics registration")
		}
	}

	return &Accumulator{
		store:   make([]byte, opts.initialCapacity),
		stats:   NewStatistics(),
		metrics: metrics,
	}, nil
}

// Append copies data[index:index+count] to the tail, growing the store if
// needed. Nothing is copied when the range is outside data.
func (a *Accumulator) Append(data []byte, index, count int) error {
	if index < 0 || count < 0 || index > len(data) || count > len(data)-index {
		return errors.WrapInvalid(
			fmt.Errorf("%w: index %d count %d len %d", errors.ErrBufferRange, index, count, len(data)),
			"Accumulator", "Append", "range check")
	}
	if count == 0 {
		return nil
	}

	a.grow(a.size + count)
	copy(a.store[a.size:], data[index:index+count])
	a.size += count

	a.stats.Append(count)
	a.stats.UpdateSize(int64(a.size))
	if a.metrics != nil {
		a.metrics.recordAppend(count, a.size)
	}
	return nil
}

// grow doubles the store until it can hold need bytes.
func (a *Accumulator) grow(need int) {
	if need <= len(a.store) {
		return
	}
	capacity := len(a.store)
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	for capacity < need {
		capacity *= 2
	}
	next := make([]byte, capacity)
	copy(next, a.store[:a.size])
	a.store = next
}

// Drain removes and returns a copy of the first upTo bytes. The remainder is
// moved to offset 0. Requests beyond Size() empty the buffer.
func (a *Accumulator) Drain(upTo int) []byte {
	if upTo <= 0 {
		return []byte{}
	}
	if upTo > a.size {
		out := make([]byte, a.size)
		copy(out, a.store[:a.size])
		a.size = 0
		a.lastScan = 0
		a.recordDrain(len(out))
		return out
	}

	out := make([]byte, upTo)
	copy(out, a.store[:upTo])
	copy(a.store, a.store[upTo:a.size])
	a.size -= upTo
	a.lastScan = 0
	a.recordDrain(upTo)
	return out
}

func (a *Accumulator) recordDrain(n int) {
	a.stats.Drain(n)
	a.stats.UpdateSize(int64(a.size))
	if a.metrics != nil {
		a.metrics.recordDrain(n, a.size)
	}
}

// Size returns the number of valid bytes held.
func (a *Accumulator) Size() int {
	return a.size
}

// Capacity returns the current store length.
func (a *Accumulator) Capacity() int {
	return len(a.store)
}

// Window returns the valid bytes without copying. The slice is only valid
// until the next Append, Drain or Reset.
func (a *Accumulator) Window() []byte {
	return a.store[:a.size]
}

// Bytes returns a copy of the valid bytes.
func (a *Accumulator) Bytes() []byte {
	out := make([]byte, a.size)
	copy(out, a.store[:a.size])
	return out
}

// LastScan returns the offset up to which the previous scan progressed.
func (a *Accumulator) LastScan() int {
	return a.lastScan
}

// SetLastScan records scan progress, clamped to [0, Size()].
func (a *Accumulator) SetLastScan(offset int) {
	switch {
	case offset < 0:
		offset = 0
	case offset > a.size:
		offset = a.size
	}
	a.lastScan = offset
}

// Reset discards all bytes and the scan position. Capacity is kept.
func (a *Accumulator) Reset() {
	a.size = 0
	a.lastScan = 0
	a.stats.RecordReset()
	a.stats.UpdateSize(0)
	if a.metrics != nil {
		a.metrics.recordReset()
	}
}

// Stats returns the accumulator statistics.
func (a *Accumulator) Stats() *Statistics {
	return a.stats
}
