// Package metrics exports analysis job metrics.
package metrics

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement is the InfluxDB measurement jobs are written to.
const Measurement = "vault_job"

// JobMetrics summarises one analysed video.
type JobMetrics struct {
	JobID          string
	AthleteID      string
	VideoID        string
	Status         string
	FinalPhase     string
	Frames         int
	DetectedFrames int
	Duration       time.Duration
	// MaxDeductions holds the largest value seen per deduction kind.
	MaxDeductions map[string]float64
	Finished      time.Time
}

// Recorder receives job metrics.
type Recorder interface {
	RecordJob(ctx context.Context, m JobMetrics)
	Close()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordJob(context.Context, JobMetrics) {}
func (Nop) Close()                                {}

// Point converts m to an InfluxDB point.
func Point(m JobMetrics) *influxdb2_write.Point {
	ts := m.Finished
	if ts.IsZero() {
		ts = time.Now()
	}

	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("athlete", m.AthleteID).
		AddTag("final_phase", m.FinalPhase).
		AddTag("status", m.Status).
		AddField("job", m.JobID).
		AddField("video", m.VideoID).
		AddField("frames", m.Frames).
		AddField("detected_frames", m.DetectedFrames).
		AddField("duration_ms", m.Duration.Milliseconds()).
		SetTime(ts)

	for kind, v := range m.MaxDeductions {
		p.AddField(kind, v)
	}
	return p
}

// InfluxSettings locate the InfluxDB bucket.
type InfluxSettings struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxRecorder writes job metrics to InfluxDB asynchronously.
type InfluxRecorder struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	logger zerolog.Logger
}

// NewInfluxRecorder connects to InfluxDB. Write errors are logged, never returned.
func NewInfluxRecorder(s InfluxSettings, logger zerolog.Logger) *InfluxRecorder {
	client := influxdb2.NewClientWithOptions(s.URL, s.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(50).
			SetFlushInterval(1000),
	)

	r := &InfluxRecorder{
		client: client,
		writer: client.WriteAPI(s.Org, s.Bucket),
		logger: logger.With().Str("component", "metrics").Str("bucket", s.Bucket).Logger(),
	}

	errorsCh := r.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			r.logger.Error().Err(writeErr).Msg("Error sending data to InfluxDB")
		}
	}()

	return r
}

// Ping reports whether the server is reachable.
func (r *InfluxRecorder) Ping(ctx context.Context) bool {
	ok, err := r.client.Ping(ctx)
	return err == nil && ok
}

// RecordJob queues a point for m.
func (r *InfluxRecorder) RecordJob(_ context.Context, m JobMetrics) {
	r.writer.WritePoint(Point(m))
	r.logger.Trace().Str("job", m.JobID).Msg("job metrics queued")
}

// Close flushes pending points and releases the client.
func (r *InfluxRecorder) Close() {
	r.writer.Flush()
	r.client.Close()
}
