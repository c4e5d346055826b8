// Package report summarizes a finished run: how many inputs succeeded,
// failed or needed retries, and the latency distribution from acceptance to
// emission.
package report

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/fgpipe/internal/manager"
)

// Summary describes a finished run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Retried   int
	Retries   int

	LatencyMean   time.Duration
	LatencyStdDev time.Duration
	LatencyP50    time.Duration
	LatencyP95    time.Duration
	LatencyMax    time.Duration
}

// Collector records outcomes. It implements manager.Emitter.
type Collector struct {
	mu        sync.Mutex
	latencies []float64
	summary   Summary
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Emit records one outcome
func (c *Collector) Emit(o manager.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summary.Total++
	if o.Result.OK() {
		c.summary.Succeeded++
	} else {
		c.summary.Failed++
	}
	if o.Retries > 0 {
		c.summary.Retried++
		c.summary.Retries += o.Retries
	}
	c.latencies = append(c.latencies, o.Latency.Seconds())
	return nil
}

// Summary computes the run summary
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.summary
	if len(c.latencies) == 0 {
		return s
	}

	sorted := make([]float64, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Float64s(sorted)

	s.LatencyMean = seconds(stat.Mean(sorted, nil))
	if len(sorted) > 1 {
		s.LatencyStdDev = seconds(stat.StdDev(sorted, nil))
	}
	s.LatencyP50 = seconds(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	s.LatencyP95 = seconds(stat.Quantile(0.95, stat.Empirical, sorted, nil))
	s.LatencyMax = seconds(sorted[len(sorted)-1])
	return s
}

// Fields renders the summary as log fields
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("retried", s.Retried),
		zap.Int("retries", s.Retries),
		zap.Duration("latency_mean", s.LatencyMean),
		zap.Duration("latency_stddev", s.LatencyStdDev),
		zap.Duration("latency_p50", s.LatencyP50),
		zap.Duration("latency_p95", s.LatencyP95),
		zap.Duration("latency_max", s.LatencyMax),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
