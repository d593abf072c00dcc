package utils

import (
	"crypto-desk/src/models"
)

// -----------------------------------------------------------------------------
// ChartBuffer is a fixed-size circular buffer of chart points.
// True ring buffer - no resizing allowed! Once full, each append evicts the
// oldest point (FIFO).
// -----------------------------------------------------------------------------

type ChartBuffer struct {
	data     []models.MChartPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewChartBuffer creates a new buffer with fixed capacity
func NewChartBuffer(capacity int) *ChartBuffer {
	if capacity <= 0 {
		capacity = models.ChartCapacity
	}

	return &ChartBuffer{
		data:     make([]models.MChartPoint, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a point, evicting the oldest when full
func (cb *ChartBuffer) Append(point models.MChartPoint) {
	cb.data[cb.index] = point
	cb.index = (cb.index + 1) % cb.capacity

	// Update size (never exceeds capacity)
	if cb.size < cb.capacity {
		cb.size++
	}
}

// -----------------------------------------------------------------------------

// Reset replaces the whole series with a freshly fetched one. When the input
// is longer than the capacity only the newest points are kept.
func (cb *ChartBuffer) Reset(points []models.MChartPoint) {
	cb.index = 0
	cb.size = 0

	start := 0
	if len(points) > cb.capacity {
		start = len(points) - cb.capacity
	}
	for _, p := range points[start:] {
		cb.Append(p)
	}
}

// -----------------------------------------------------------------------------

// Len returns the current number of points
func (cb *ChartBuffer) Len() int {
	return cb.size
}

// -----------------------------------------------------------------------------

// GetAll returns all points in insertion order (oldest to newest)
func (cb *ChartBuffer) GetAll() []models.MChartPoint {
	if cb.size == 0 {
		return []models.MChartPoint{}
	}

	result := make([]models.MChartPoint, cb.size)

	// Calculate start index (oldest element)
	var startIdx int
	if cb.size == cb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = cb.index
	} else {
		// Buffer not full, oldest is at index 0
		startIdx = 0
	}

	for i := 0; i < cb.size; i++ {
		result[i] = cb.data[(startIdx+i)%cb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Latest returns the newest point, or false when the buffer is empty.
func (cb *ChartBuffer) Latest() (models.MChartPoint, bool) {
	if cb.size == 0 {
		return models.MChartPoint{}, false
	}
	idx := (cb.index - 1 + cb.capacity) % cb.capacity
	return cb.data[idx], true
}
