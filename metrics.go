package ggframe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/ggframe/frame"
	"github.com/gogpu/ggframe/render"
)

// metrics holds the pipeline collectors. A nil *metrics records nothing.
type metrics struct {
	frames          prometheus.Counter
	frameErrors     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	commandFailures *prometheus.CounterVec
	slotWait        prometheus.Histogram
	gpuTime         prometheus.Histogram
	uploadErrors    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ggframe_frames_total",
			Help: "Frames rendered and presented.",
		}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ggframe_frame_errors_total",
			Help: "Frames aborted, by stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ggframe_stage_duration_seconds",
			Help:    "Stage execution time.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"stage"}),
		commandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ggframe_command_failures_total",
			Help: "Draw commands skipped by the aggregator, by kind.",
		}, []string{"kind"}),
		slotWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ggframe_slot_wait_seconds",
			Help:    "Time spent waiting for a slot's previous submission.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		gpuTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ggframe_gpu_time_seconds",
			Help:    "Intervals between device timestamps of retired submissions.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		uploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ggframe_upload_errors_total",
			Help: "Frames whose drawing context failed to upload.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.frames, m.frameErrors, m.stageDuration, m.commandFailures,
		m.slotWait, m.gpuTime, m.uploadErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("ggframe: register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *metrics) observeStage(s Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(s.String()).Observe(d.Seconds())
}

func (m *metrics) frameError(s Stage) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(s.String()).Inc()
}

func (m *metrics) prepared(r render.Report) {
	if m == nil {
		return
	}
	for _, f := range r.Failures {
		m.commandFailures.WithLabelValues(f.Command.Kind().String()).Inc()
	}
}

func (m *metrics) rendered(res frame.Result) {
	if m == nil {
		return
	}
	m.frames.Inc()
	if res.Waited {
		m.slotWait.Observe(res.WaitTime.Seconds())
	}
	for _, d := range res.GPUTimes {
		m.gpuTime.Observe(d.Seconds())
	}
	if res.UploadErr != nil {
		m.uploadErrors.Inc()
	}
}
