// Package relay places announcement calls end to end.
//
// The Originator receives a validated request, synthesizes the announcement
// audio, publishes the origination artifact for the engine, then reclaims
// stale assets from earlier calls. Calls are strictly serialized: the host
// has one trunk and the synthesis programs are not built for concurrency,
// so one alert is fully placed before the next begins.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/axluca/callspool/internal/observability"
	"github.com/axluca/callspool/internal/spool"
	"github.com/axluca/callspool/internal/sweep"
	"github.com/axluca/callspool/internal/tts"
)

// DefaultMessage is spoken when a request does not say what to announce.
const DefaultMessage = "Alert from Akira"

// CallRequest is one inbound alert call order. The HTTP layer validates it
// before handing it over; To is always non-empty here.
type CallRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// CallResult reports a placed call back to the requester.
type CallResult struct {
	Status   string `json:"status"`
	To       string `json:"to"`
	Sound    string `json:"sound"`
	CallFile string `json:"call_file"`
}

// Dialplan fixes the artifact fields that do not vary per call.
type Dialplan struct {
	Technology string
	Trunk      string
	CallerID   string
	MaxRetries int
	RetryTime  int
	WaitTime   int
}

// Originator drives the synthesize → publish → sweep sequence.
type Originator struct {
	mu       sync.Mutex
	pipeline *tts.Pipeline
	writer   *spool.Writer
	sweeper  *sweep.Sweeper
	dialplan Dialplan
	metrics  *observability.Metrics

	now     func() time.Time
	lastUID int64
}

// New creates an Originator wiring the pipeline, spool writer, and sweeper
// together under the given dialplan.
func New(pipeline *tts.Pipeline, writer *spool.Writer, sweeper *sweep.Sweeper, dialplan Dialplan, metrics *observability.Metrics) *Originator {
	return &Originator{
		pipeline: pipeline,
		writer:   writer,
		sweeper:  sweeper,
		dialplan: dialplan,
		metrics:  metrics,
		now:      time.Now,
	}
}

// PlaceCall runs one alert call through synthesis and publication.
// Concurrent callers queue; each request is fully processed before the
// next starts.
func (o *Originator) PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	message := req.Message
	if message == "" {
		message = DefaultMessage
	}

	uid := o.nextUID()
	start := time.Now()
	logger := slog.With("uid", uid, "to", req.To)
	logger.Info("placing call", "message_length", len(message))

	synthStart := time.Now()
	asset, err := o.pipeline.Synthesize(ctx, uid, message)
	if err != nil {
		o.metrics.CallsTotal.WithLabelValues("synthesis_error").Inc()
		logger.Error("synthesis failed", "error", err)
		return nil, fmt.Errorf("synthesizing announcement: %w", err)
	}
	o.metrics.ObserveSynthesis(time.Since(synthStart))
	logger.Debug("announcement synthesized", "sound", asset.Name)

	publishStart := time.Now()
	callFile, err := o.writer.Publish(spool.Artifact{
		Technology:  o.dialplan.Technology,
		Destination: req.To,
		Trunk:       o.dialplan.Trunk,
		Sound:       asset.Name,
		CallerID:    o.dialplan.CallerID,
		MaxRetries:  o.dialplan.MaxRetries,
		RetryTime:   o.dialplan.RetryTime,
		WaitTime:    o.dialplan.WaitTime,
	}, uid)
	if err != nil {
		o.metrics.CallsTotal.WithLabelValues("publish_error").Inc()
		logger.Error("publish failed", "sound", asset.Name, "error", err)
		// The synthesized asset stays behind; a later sweep reclaims it.
		return nil, fmt.Errorf("publishing call file: %w", err)
	}
	o.metrics.ObservePublish(time.Since(publishStart))

	// Reclaim assets from earlier calls. Failures here never affect the
	// call that was just placed.
	if removed, err := o.sweeper.Sweep(); err != nil {
		logger.Warn("asset sweep failed", "error", err)
	} else if removed > 0 {
		o.metrics.SweptAssetsTotal.Add(float64(removed))
		logger.Info("swept stale assets", "removed", removed)
	}

	o.metrics.CallsTotal.WithLabelValues("ok").Inc()
	logger.Info("call placed", "sound", asset.Name, "call_file", callFile, "duration", time.Since(start))

	return &CallResult{
		Status:   "ok",
		To:       req.To,
		Sound:    asset.Name,
		CallFile: callFile,
	}, nil
}

// nextUID returns a millisecond-resolution id strictly greater than any
// previously issued one, so bursts within the same millisecond still get
// distinct asset and call file names. Callers hold o.mu.
func (o *Originator) nextUID() string {
	ms := o.now().UnixMilli()
	if ms <= o.lastUID {
		ms = o.lastUID + 1
	}
	o.lastUID = ms
	return strconv.FormatInt(ms, 10)
}
