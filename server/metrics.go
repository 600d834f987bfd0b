// seehuhn.de/go/pdfmark - tamper-evident watermarks for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package server

import (
	"slices"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// window is the number of observations kept per latency or size series.
const window = 100

// Metrics collects request counters, latencies and upload sizes.  It is
// safe for concurrent use.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]map[string]int64
	latencies map[string][]time.Duration
	sizes     map[string][]int64
}

// NewMetrics returns an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]map[string]int64),
		latencies: make(map[string][]time.Duration),
		sizes:     make(map[string][]int64),
	}
}

// Inc increments the counter name for the given label.
func (m *Metrics) Inc(name, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byLabel, ok := m.counters[name]
	if !ok {
		byLabel = make(map[string]int64)
		m.counters[name] = byLabel
	}
	byLabel[label]++
}

// ObserveLatency records the duration of a request.  Only the most recent
// observations are kept.
func (m *Metrics) ObserveLatency(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[name] = appendWindow(m.latencies[name], d)
}

// ObserveSize records the size of an upload in bytes.
func (m *Metrics) ObserveSize(name string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[name] = appendWindow(m.sizes[name], size)
}

func appendWindow[T any](list []T, x T) []T {
	list = append(list, x)
	if len(list) > window {
		list = slices.Clone(list[len(list)-window:])
	}
	return list
}

// Snapshot is a copy of the collected metrics, in a form suitable for JSON
// encoding.
type Snapshot struct {
	Counters  map[string]map[string]int64 `json:"counters"`
	Latencies map[string]Summary          `json:"latencies"`
	Sizes     map[string]Summary          `json:"sizes"`
}

// Summary describes a series of observations.
type Summary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
}

// Snapshot returns the current state of the collector.  Latencies are
// given in milliseconds, sizes in bytes.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := &Snapshot{
		Counters:  make(map[string]map[string]int64, len(m.counters)),
		Latencies: make(map[string]Summary, len(m.latencies)),
		Sizes:     make(map[string]Summary, len(m.sizes)),
	}
	for name, byLabel := range m.counters {
		res.Counters[name] = maps.Clone(byLabel)
	}
	for name, list := range m.latencies {
		res.Latencies[name] = summarize(list, func(d time.Duration) float64 {
			return float64(d) / float64(time.Millisecond)
		})
	}
	for name, list := range m.sizes {
		res.Sizes[name] = summarize(list, func(n int64) float64 {
			return float64(n)
		})
	}
	return res
}

func summarize[T any](list []T, value func(T) float64) Summary {
	s := Summary{Count: len(list)}
	if len(list) == 0 {
		return s
	}
	var sum float64
	for _, x := range list {
		v := value(x)
		sum += v
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg = sum / float64(len(list))
	return s
}
