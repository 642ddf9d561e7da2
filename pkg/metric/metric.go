// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric exports process counters in the Prometheus text exposition
// format. The threading slow-path counters are registered by default.
package metric

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"google.golang.org/protobuf/proto"
	"gvisor.dev/threading/pkg/threading"

	dto "github.com/prometheus/client_model/go"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInvalidName indicates that a metric name is not a valid Prometheus
	// metric name.
	ErrInvalidName = errors.New("metric name is not a valid Prometheus name")
)

// customUint64Metric is a metric whose value is read from a callback at
// export time.
type customUint64Metric struct {
	name        string
	description string

	// cumulative indicates a counter. Other metrics are exported as gauges.
	cumulative bool

	value func() uint64
}

func (m customUint64Metric) family(v uint64) *dto.MetricFamily {
	f := &dto.MetricFamily{
		Name: proto.String(m.name),
		Help: proto.String(m.description),
	}
	if m.cumulative {
		f.Type = dto.MetricType_COUNTER.Enum()
		f.Metric = []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(float64(v))}}}
	} else {
		f.Type = dto.MetricType_GAUGE.Enum()
		f.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(float64(v))}}}
	}
	return f
}

// allMetrics are the registered metrics, keyed by name.
var allMetrics struct {
	mu      threading.LazyMutex
	metrics map[string]customUint64Metric
}

// RegisterCustomUint64Metric registers a metric with the given name. value is
// called each time the metric is exported.
func RegisterCustomUint64Metric(name string, cumulative bool, description string, value func() uint64) error {
	if !model.IsValidMetricName(model.LabelValue(name)) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	allMetrics.mu.Lock()
	defer allMetrics.mu.Unlock()
	if _, ok := allMetrics.metrics[name]; ok {
		return ErrNameInUse
	}
	if allMetrics.metrics == nil {
		allMetrics.metrics = make(map[string]customUint64Metric)
	}
	allMetrics.metrics[name] = customUint64Metric{
		name:        name,
		description: description,
		cumulative:  cumulative,
		value:       value,
	}
	return nil
}

// MustRegisterCustomUint64Metric calls RegisterCustomUint64Metric and panics
// if it returns an error.
func MustRegisterCustomUint64Metric(name string, cumulative bool, description string, value func() uint64) {
	if err := RegisterCustomUint64Metric(name, cumulative, description, value); err != nil {
		panic(fmt.Sprintf("Unable to register metric %q: %s", name, err))
	}
}

// Write exports the current value of every registered metric to w, sorted by
// name.
func Write(w io.Writer) error {
	allMetrics.mu.Lock()
	metrics := make([]customUint64Metric, 0, len(allMetrics.metrics))
	for _, m := range allMetrics.metrics {
		metrics = append(metrics, m)
	}
	allMetrics.mu.Unlock()

	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })
	families := make([]*dto.MetricFamily, 0, len(metrics))
	for _, m := range metrics {
		families = append(families, m.family(m.value()))
	}
	return writeFamilies(w, families)
}

// threadingMetrics describes how each threading counter is exported.
var threadingMetrics = []struct {
	name        string
	description string
	value       func(threading.Statistics) uint64
}{
	{
		name:        "threading_lazy_mutex_inits_total",
		description: "Number of native mutexes constructed on first use of a LazyMutex.",
		value:       func(s threading.Statistics) uint64 { return s.LazyMutexInits },
	},
	{
		name:        "threading_lazy_mutex_spin_waits_total",
		description: "Number of LazyMutex calls that spun while another goroutine constructed the mutex.",
		value:       func(s threading.Statistics) uint64 { return s.LazyMutexSpinWaits },
	},
	{
		name:        "threading_once_inits_total",
		description: "Number of run-once initializers that ran.",
		value:       func(s threading.Statistics) uint64 { return s.OnceInits },
	},
	{
		name:        "threading_once_blocked_waits_total",
		description: "Number of run-once calls that waited for another caller's initializer.",
		value:       func(s threading.Statistics) uint64 { return s.OnceBlockedWaits },
	},
	{
		name:        "threading_fatal_errors_total",
		description: "Number of fatal native primitive failures.",
		value:       func(s threading.Statistics) uint64 { return s.FatalErrors },
	},
}

// WriteThreadingMetrics exports s as Prometheus counters to w.
func WriteThreadingMetrics(w io.Writer, s threading.Statistics) error {
	families := make([]*dto.MetricFamily, 0, len(threadingMetrics))
	for _, tm := range threadingMetrics {
		m := customUint64Metric{name: tm.name, description: tm.description, cumulative: true}
		families = append(families, m.family(tm.value(s)))
	}
	return writeFamilies(w, families)
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, f := range families {
		if _, err := expfmt.MetricFamilyToText(w, f); err != nil {
			return fmt.Errorf("writing metric %q: %w", f.GetName(), err)
		}
	}
	return nil
}

func init() {
	for _, tm := range threadingMetrics {
		value := tm.value
		MustRegisterCustomUint64Metric(tm.name, true /* cumulative */, tm.description, func() uint64 {
			return value(threading.Stats())
		})
	}
}
