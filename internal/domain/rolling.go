package domain

import "encoding/json"

// RollingStat is a fixed-capacity rolling window over a scalar series.
// It keeps a running sum so the average is O(1) per push; min and max are
// rescanned over the window, which is bounded by the capacity.
type RollingStat struct {
	values []float64
	head   int // next write position
	count  int
	sum    float64
}

// NewRollingStat creates a window holding at most capacity samples.
func NewRollingStat(capacity int) *RollingStat {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingStat{values: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest sample when at capacity.
func (r *RollingStat) Push(v float64) {
	if r.count == len(r.values) {
		r.sum -= r.values[r.head] // head points at the oldest when full
	} else {
		r.count++
	}
	r.values[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % len(r.values)
}

// Len returns the number of samples currently held.
func (r *RollingStat) Len() int {
	return r.count
}

// Average returns the mean of the window. ok is false when the window is empty.
func (r *RollingStat) Average() (avg float64, ok bool) {
	if r.count == 0 {
		return 0, false
	}
	return r.sum / float64(r.count), true
}

// Min returns the smallest sample in the window.
func (r *RollingStat) Min() (min float64, ok bool) {
	if r.count == 0 {
		return 0, false
	}
	min = r.at(0)
	for i := 1; i < r.count; i++ {
		if v := r.at(i); v < min {
			min = v
		}
	}
	return min, true
}

// Max returns the largest sample in the window.
func (r *RollingStat) Max() (max float64, ok bool) {
	if r.count == 0 {
		return 0, false
	}
	max = r.at(0)
	for i := 1; i < r.count; i++ {
		if v := r.at(i); v > max {
			max = v
		}
	}
	return max, true
}

// Values returns the window contents oldest first.
func (r *RollingStat) Values() []float64 {
	out := make([]float64, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.at(i))
	}
	return out
}

// Clone returns an independent copy of the window.
func (r *RollingStat) Clone() *RollingStat {
	c := &RollingStat{
		values: make([]float64, len(r.values)),
		head:   r.head,
		count:  r.count,
		sum:    r.sum,
	}
	copy(c.values, r.values)
	return c
}

// at indexes the ring buffer, 0 = oldest sample.
func (r *RollingStat) at(i int) float64 {
	start := r.head - r.count
	if start < 0 {
		start += len(r.values)
	}
	return r.values[(start+i)%len(r.values)]
}

// MarshalJSON emits the window as a plain array, oldest first.
func (r *RollingStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}
