/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: histogram.go
Description: Bounded-size value histogram for field analysis. Counts observed values
per key up to a hard cap on distinct keys, folds the long tail into a single overflow
bucket, and merges partial histograms built over disjoint value subsets.
*/

package histogram

import (
	"fmt"
	"sort"
)

// DefaultCap is the default maximum number of distinct keys kept by a histogram
const DefaultCap = 250

// OverflowKey is the key used for the overflow bucket in plain form output
const OverflowKey = "__other__"

// Bucket is a single histogram entry
type Bucket struct {
	Value     string `json:"value" yaml:"value"`
	Frequency int64  `json:"frequency" yaml:"frequency"`
}

// Snapshot is the plain structural form of a histogram, used for persistence and display
type Snapshot struct {
	Cap      int      `json:"cap" yaml:"cap"`
	Values   []Bucket `json:"values" yaml:"values"`
	Overflow int64    `json:"overflow" yaml:"overflow"`
}

// ValueHistogram maps observed value keys to counts.
// Once the number of distinct keys reaches the cap, new keys are counted in the
// overflow bucket and existing keys keep exact counts.
// A ValueHistogram is not safe for concurrent mutation.
type ValueHistogram struct {
	cap      int
	counts   map[string]int64
	overflow int64
}

// New creates an empty histogram with the given cap. A non-positive cap uses DefaultCap.
func New(cap int) *ValueHistogram {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &ValueHistogram{
		cap:    cap,
		counts: make(map[string]int64),
	}
}

// Add records one observation of key
func (h *ValueHistogram) Add(key string) {
	h.AddN(key, 1)
}

// AddN records n observations of key. Non-positive n is ignored.
func (h *ValueHistogram) AddN(key string, n int64) {
	if n <= 0 {
		return
	}
	if _, ok := h.counts[key]; ok {
		h.counts[key] += n
		return
	}
	if len(h.counts) >= h.cap {
		h.overflow += n
		return
	}
	h.counts[key] = n
}

// Count returns the exact count recorded for key (0 if the key was never admitted)
func (h *ValueHistogram) Count(key string) int64 {
	return h.counts[key]
}

// Overflow returns the number of observations folded into the overflow bucket
func (h *ValueHistogram) Overflow() int64 {
	return h.overflow
}

// Cap returns the distinct key cap
func (h *ValueHistogram) Cap() int {
	return h.cap
}

// Distinct returns the number of admitted distinct keys
func (h *ValueHistogram) Distinct() int {
	return len(h.counts)
}

// Total returns the number of observations, overflow included
func (h *ValueHistogram) Total() int64 {
	total := h.overflow
	for _, c := range h.counts {
		total += c
	}
	return total
}

// Empty reports whether nothing has been recorded
func (h *ValueHistogram) Empty() bool {
	return len(h.counts) == 0 && h.overflow == 0
}

// Buckets returns the admitted buckets ordered by frequency (descending), then value
func (h *ValueHistogram) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(h.counts))
	for k, c := range h.counts {
		buckets = append(buckets, Bucket{Value: k, Frequency: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Frequency != buckets[j].Frequency {
			return buckets[i].Frequency > buckets[j].Frequency
		}
		return buckets[i].Value < buckets[j].Value
	})
	return buckets
}

// Clone returns a deep copy
func (h *ValueHistogram) Clone() *ValueHistogram {
	c := &ValueHistogram{
		cap:      h.cap,
		counts:   make(map[string]int64, len(h.counts)),
		overflow: h.overflow,
	}
	for k, v := range h.counts {
		c.counts[k] = v
	}
	return c
}

// Equal reports whether two histograms hold the same counts, overflow and cap
func (h *ValueHistogram) Equal(o *ValueHistogram) bool {
	if h == nil || o == nil {
		return h == o
	}
	if h.cap != o.cap || h.overflow != o.overflow || len(h.counts) != len(o.counts) {
		return false
	}
	for k, v := range h.counts {
		if ov, ok := o.counts[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Merge returns the bucket-wise sum of a and b with their overflow buckets summed.
// Neither input is modified. The result takes the smaller of the two caps; when the
// union of admitted keys exceeds it, the lexically smallest keys are kept and the
// counts of the rest move to the overflow bucket. Merge is commutative and associative
// and never loses an observation from Total.
// A nil argument is treated as an empty histogram.
func Merge(a, b *ValueHistogram) *ValueHistogram {
	switch {
	case a == nil && b == nil:
		return New(DefaultCap)
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}

	cap := a.cap
	if b.cap < cap {
		cap = b.cap
	}
	out := &ValueHistogram{
		cap:      cap,
		counts:   make(map[string]int64, len(a.counts)+len(b.counts)),
		overflow: a.overflow + b.overflow,
	}
	for k, v := range a.counts {
		out.counts[k] += v
	}
	for k, v := range b.counts {
		out.counts[k] += v
	}
	out.trim()
	return out
}

// trim folds every key beyond the cap into overflow, keeping the lexically smallest
func (h *ValueHistogram) trim() {
	if len(h.counts) <= h.cap {
		return
	}
	keys := make([]string, 0, len(h.counts))
	for k := range h.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys[h.cap:] {
		h.overflow += h.counts[k]
		delete(h.counts, k)
	}
}

// Snapshot returns the plain structural form
func (h *ValueHistogram) Snapshot() Snapshot {
	return Snapshot{
		Cap:      h.cap,
		Values:   h.Buckets(),
		Overflow: h.overflow,
	}
}

// ToMap returns the histogram as nested maps, slices, numbers and strings only
func (h *ValueHistogram) ToMap() map[string]interface{} {
	values := make([]interface{}, 0, len(h.counts))
	for _, b := range h.Buckets() {
		values = append(values, map[string]interface{}{
			"value":     b.Value,
			"frequency": b.Frequency,
		})
	}
	return map[string]interface{}{
		"cap":      h.cap,
		"values":   values,
		"overflow": h.overflow,
	}
}

// FromSnapshot rebuilds a histogram from its plain form
func FromSnapshot(s Snapshot) (*ValueHistogram, error) {
	if s.Cap <= 0 {
		return nil, fmt.Errorf("histogram cap must be positive, got %d", s.Cap)
	}
	if s.Overflow < 0 {
		return nil, fmt.Errorf("histogram overflow must not be negative, got %d", s.Overflow)
	}
	if len(s.Values) > s.Cap {
		return nil, fmt.Errorf("histogram holds %d distinct values, cap is %d", len(s.Values), s.Cap)
	}
	h := New(s.Cap)
	for _, b := range s.Values {
		if b.Frequency < 0 {
			return nil, fmt.Errorf("negative frequency for value %q", b.Value)
		}
		if _, dup := h.counts[b.Value]; dup {
			return nil, fmt.Errorf("duplicate histogram value %q", b.Value)
		}
		h.counts[b.Value] = b.Frequency
	}
	h.overflow = s.Overflow
	return h, nil
}
