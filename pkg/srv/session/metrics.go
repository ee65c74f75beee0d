/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package session

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsNamespace = "ibob"

// Metrics exposes the session counters in the prometheus format
type Metrics struct {
	Registry      *prometheus.Registry
	recordLatency prometheus.Histogram
}

func NewMetrics(s *Session) *Metrics {
	labels := prometheus.Labels{"device": s.name}
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(v.Load())
		})
	}

	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		recordLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   MetricsNamespace,
			Name:        "measurement_record_seconds",
			Help:        "Time to decode and record one completed measurement",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	m.Registry.MustRegister(
		counter("packets_received_total", "Datagrams received on the data socket", &s.packets),
		counter("packets_malformed_total", "Datagrams shorter than the data header", &s.malformed),
		counter("measurements_total", "Measurements completed", &s.measurements),
		counter("measurements_dropped_total", "Incomplete measurements evicted from the table", &s.dropped),
		counter("assembly_errors_total", "Fragments rejected by the assembler", &s.assemblyErrors),
		counter("decode_errors_total", "Measurements the decoder rejected", &s.decodeErrors),
		counter("record_errors_total", "Failed realtime or archive writes", &s.recordErrors),
		counter("accumulations_missed_total", "Gaps in the spectral power accumulation number", &s.missed),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        "measurements_pending",
			Help:        "Measurements waiting for fragments",
			ConstLabels: labels,
		}, func() float64 {
			return float64(s.pending.Load())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        "writing",
			Help:        "1 while an archive is open",
			ConstLabels: labels,
		}, func() float64 {
			if s.Writing() {
				return 1
			}
			return 0
		}),
		m.recordLatency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
