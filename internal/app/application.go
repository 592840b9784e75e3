package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/basestation"
	"go1090/internal/dsp"
	"go1090/internal/logging"
	"go1090/internal/ratelimit"
	"go1090/internal/rtlsdr"
	"go1090/internal/sinks"
	"go1090/internal/tracker"
)

// demodLookback is how many trailing magnitude samples from the
// previous buffer are retained so a preamble hit reported right at the
// start of a new buffer (because the detector's own internal carry
// window spans the boundary) still has enough history behind it for
// Demodulate to read. It only needs to cover the detector's own
// lookahead margin, not a full frame.
const demodLookback = 64

// Application wires the realtime pipeline together: a sample source
// (RTL-SDR or file replay) feeds dsp.Magnitude/NoiseFloor/Detector,
// whose hits become adsb.RawFrame via the Demodulator, validated by
// ValidateAndCorrect, fanned out to the raw-frame sinks, and (when
// CRC-valid) decoded and folded into the Tracker, whose StateUpdates flow
// through the optional RateLimiter to the state sinks.
type Application struct {
	config Config
	logger *logrus.Logger

	source rtlsdr.SampleSource

	noiseFloor *dsp.NoiseFloor
	detector   *dsp.Detector
	demod      *adsb.Demodulator

	trk     *tracker.Tracker
	limiter *ratelimit.Limiter

	logRotator  *logging.LogRotator
	fileArchive *basestation.Writer

	beastSink *sinks.BeastSink
	rawSink   *sinks.RawSink
	avrSink   *sinks.AVRSink
	sbs1Sink  *sinks.SBS1Sink
	wsSink    *sinks.WebSocketSink
	httpSrv   *sinks.HTTPServer
	ctrlSrv   *sinks.ControlServer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu        sync.Mutex
	transientCount uint64
	malformedCount uint64
	decodedCount   uint64
	preambleCount  uint64
}

// NewApplication creates a new application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	if lvl, err := logrus.ParseLevel(config.LogLevel); err == nil && config.LogLevel != "" {
		logger.SetLevel(lvl)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes every component, launches the pipeline, and blocks
// until a shutdown signal arrives.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting ADS-B decoder")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	app.run()

	<-sigChan
	app.logger.Info("Received shutdown signal")
	app.shutdown()

	return nil
}

// initializeComponents builds the DSP front-end, the Tracker and
// optional RateLimiter, and every enabled sink. Fatal failures here
// (cannot open the sample source, cannot bind a sink port) are the only
// errors the pipeline propagates, per spec.md §7's error policy.
func (app *Application) initializeComponents() error {
	cfg := app.config

	if cfg.FilePath != "" {
		fs, err := rtlsdr.NewFileSource(cfg.FilePath, cfg.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %w", err)
		}
		app.source = fs
	} else {
		dev, err := rtlsdr.NewRTLSDRDevice(cfg.DeviceIndex)
		if err != nil {
			return fmt.Errorf("failed to initialize RTL-SDR: %w", err)
		}
		if err := dev.Configure(cfg.Frequency, cfg.SampleRate, cfg.Gain); err != nil {
			return fmt.Errorf("failed to configure RTL-SDR: %w", err)
		}
		app.source = dev
	}

	app.noiseFloor = dsp.NewNoiseFloor(dsp.DefaultWindow)
	app.detector = dsp.NewDetector(cfg.PreambleThreshold, dsp.DefaultKRel)
	app.demod = adsb.NewDemodulator()

	var err error
	app.logRotator, err = logging.NewLogRotator(cfg.LogDir, cfg.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	app.fileArchive = basestation.NewWriter(app.logRotator, app.logger)

	app.trk = tracker.New(tracker.Config{
		Lifetime:    cfg.Lifetime,
		MaxAircraft: cfg.MaxAircraft,
	}, app.logger, app.onStateUpdate)

	if cfg.RateLimitEnabled {
		intervals := ratelimit.Intervals{
			Position:       time.Duration(cfg.PositionRateMs) * time.Millisecond,
			Velocity:       time.Duration(cfg.VelocityRateMs) * time.Millisecond,
			Identification: time.Duration(cfg.IdentificationMs) * time.Millisecond,
			Metadata:       time.Duration(cfg.MetadataRateMs) * time.Millisecond,
		}
		app.limiter = ratelimit.New(intervals, app.publishState)
	}

	if cfg.Beast.Enabled {
		app.beastSink, err = sinks.NewBeastSink(fmt.Sprintf(":%d", cfg.Beast.Port), sinks.DefaultQueueCap, app.logger)
		if err != nil {
			return fmt.Errorf("failed to bind BEAST sink: %w", err)
		}
	}
	if cfg.Raw.Enabled {
		app.rawSink, err = sinks.NewRawSink(fmt.Sprintf(":%d", cfg.Raw.Port), sinks.DefaultQueueCap, app.logger)
		if err != nil {
			return fmt.Errorf("failed to bind Raw sink: %w", err)
		}
	}
	if cfg.AVR.Enabled {
		app.avrSink, err = sinks.NewAVRSink(fmt.Sprintf(":%d", cfg.AVR.Port), sinks.DefaultQueueCap, app.logger)
		if err != nil {
			return fmt.Errorf("failed to bind AVR sink: %w", err)
		}
	}
	if cfg.SBS1.Enabled {
		app.sbs1Sink, err = sinks.NewSBS1Sink(fmt.Sprintf(":%d", cfg.SBS1.Port), sinks.DefaultQueueCap, app.logger)
		if err != nil {
			return fmt.Errorf("failed to bind SBS-1 sink: %w", err)
		}
	}
	if cfg.WebSocket.Enabled {
		app.wsSink = sinks.NewWebSocketSink(sinks.DefaultQueueCap, app.logger)
	}

	httpBind := fmt.Sprintf(":%d", cfg.WebSocket.Port)
	app.httpSrv = sinks.NewHTTPServer(httpBind, cfg.FrontendPath, app.snapshotAircraft, app.wsSink, app.logger)
	if err := app.httpSrv.Serve(); err != nil {
		return fmt.Errorf("failed to bind snapshot server: %w", err)
	}

	app.ctrlSrv, err = sinks.NewControlServer(cfg.CtrlBind, app.snapshotAircraft, app.statsSnapshot, app.logger)
	if err != nil {
		return fmt.Errorf("failed to bind control port: %w", err)
	}
	app.ctrlSrv.Serve()

	return nil
}

// run launches the sample-capture goroutine, the DSP/decode pipeline
// goroutine, the rate limiter's sweep, and the periodic cleanup and
// statistics goroutines.
func (app *Application) run() {
	sampleChan := make(chan []complex64, 64)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.source.Start(app.ctx, sampleChan); err != nil {
			app.logger.WithError(err).Error("sample source stopped")
		}
	}()

	if app.limiter != nil {
		app.limiter.Start()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(app.ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.processSamples(sampleChan)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.cleanupSweep()
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()

	app.logger.Info("pipeline started")
}

// processSamples is the single sequential consumer of the sample
// stream: magnitude derivation, noise-floor update, preamble
// correlation, PPM demodulation, CRC validation, and the fan-out to raw
// sinks and the Tracker. It never blocks indefinitely: the sample
// channel is read until closed or ctx is cancelled, and every internal
// failure mode (insufficient samples, bad CRC) is a silent, counted
// skip rather than a stall.
func (app *Application) processSamples(sampleChan <-chan []complex64) {
	var sampleIndex uint64
	var lookback []float32

	for {
		select {
		case <-app.ctx.Done():
			return
		case buf, ok := <-sampleChan:
			if !ok {
				return
			}

			mag := dsp.Magnitude(buf)
			noise := make([]float32, len(mag))
			for i, m := range mag {
				app.noiseFloor.Update(m)
				noise[i] = app.noiseFloor.Value()
			}

			hits := app.detector.Process(mag, noise)
			app.addPreambleCount(uint64(len(hits)))

			combined := append(append([]float32(nil), lookback...), mag...)
			combinedBase := sampleIndex - uint64(len(lookback))

			for _, hit := range hits {
				frame, ok := app.demod.Demodulate(hit, combined, combinedBase)
				if !ok {
					app.addTransientCount(1)
					continue
				}
				frame.CapturedAt = time.Now()
				app.handleFrame(frame)
			}

			keep := demodLookback
			if keep > len(combined) {
				keep = len(combined)
			}
			lookback = append([]float32(nil), combined[len(combined)-keep:]...)

			sampleIndex += uint64(len(buf))
		}
	}
}

// handleFrame validates a demodulated RawFrame's CRC, fans it out to
// every enabled raw-frame sink, and for every CRC-valid frame whose
// downlink format adsb.Decode recognizes, ingests the decoded packet into
// the Tracker.
func (app *Application) handleFrame(frame *adsb.RawFrame) {
	result := adsb.ValidateAndCorrect(frame)
	if !result.Valid {
		app.addMalformedCount(1)
		if app.config.ForwardInvalid {
			app.publishRaw(frame)
		}
		return
	}

	app.publishRaw(frame)

	pkt, ok := adsb.Decode(frame)
	if !ok {
		return
	}
	app.addDecodedCount(1)
	app.trk.Ingest(pkt, frame.CapturedAt)
}

// publishRaw fans a CRC-valid (or, if configured, CRC-invalid) RawFrame
// out to every enabled raw-frame sink. These sinks bypass the
// RateLimiter entirely, per spec.md §4.6.
func (app *Application) publishRaw(frame *adsb.RawFrame) {
	if app.beastSink != nil {
		app.beastSink.Publish(frame)
	}
	if app.rawSink != nil {
		app.rawSink.Publish(frame)
	}
	if app.avrSink != nil {
		app.avrSink.Publish(frame)
	}
}

// onStateUpdate is the Tracker's onUpdate callback: route through the
// RateLimiter if enabled, otherwise publish immediately.
func (app *Application) onStateUpdate(u tracker.StateUpdate) {
	if app.limiter != nil {
		app.limiter.Submit(u)
		return
	}
	app.publishState(u)
}

// publishState fans a StateUpdate out to every enabled state sink and
// appends it to the rotated BaseStation archive.
func (app *Application) publishState(u tracker.StateUpdate) {
	if app.sbs1Sink != nil {
		app.sbs1Sink.Publish(u)
	}
	if app.wsSink != nil {
		app.wsSink.Publish(u)
	}
	if app.fileArchive != nil {
		if err := app.fileArchive.Write(u); err != nil {
			app.logger.WithError(err).Debug("failed to archive state update")
		}
	}
}

// snapshotAircraft supplies the snapshot/control servers' "aircraft"
// view: the Tracker's currently active set.
func (app *Application) snapshotAircraft() []*tracker.AircraftState {
	return app.trk.Snapshot()
}

// statsEntry is the JSON shape the control port's "stats" command
// returns: rate-limiter counters plus the pipeline's own stage
// counters.
type statsEntry struct {
	RateLimit ratelimit.Counters `json:"rate_limiter"`
	Pipeline  pipelineCounters   `json:"pipeline"`
}

type pipelineCounters struct {
	Preambles uint64 `json:"preambles"`
	Transient uint64 `json:"transient_discards"`
	Malformed uint64 `json:"malformed_frames"`
	Decoded   uint64 `json:"decoded_packets"`
}

func (app *Application) statsSnapshot() interface{} {
	var rl ratelimit.Counters
	if app.limiter != nil {
		rl = app.limiter.Snapshot()
	}

	app.statsMu.Lock()
	pc := pipelineCounters{
		Preambles: app.preambleCount,
		Transient: app.transientCount,
		Malformed: app.malformedCount,
		Decoded:   app.decodedCount,
	}
	app.statsMu.Unlock()

	return statsEntry{RateLimit: rl, Pipeline: pc}
}

func (app *Application) addPreambleCount(n uint64) {
	app.statsMu.Lock()
	app.preambleCount += n
	app.statsMu.Unlock()
}

func (app *Application) addTransientCount(n uint64) {
	app.statsMu.Lock()
	app.transientCount += n
	app.statsMu.Unlock()
}

func (app *Application) addMalformedCount(n uint64) {
	app.statsMu.Lock()
	app.malformedCount += n
	app.statsMu.Unlock()
}

func (app *Application) addDecodedCount(n uint64) {
	app.statsMu.Lock()
	app.decodedCount += n
	app.statsMu.Unlock()
}

// cleanupSweep runs the Tracker's 1 Hz eviction sweep (spec.md §4.5),
// freeing each evicted aircraft's RateLimiter slots in turn.
func (app *Application) cleanupSweep() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case now := <-ticker.C:
			evicted := app.trk.Sweep(now)
			if app.limiter != nil {
				for _, icao := range evicted {
					app.limiter.Free(icao)
				}
			}
		}
	}
}

// reportStatistics logs pipeline counters periodically.
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.statsMu.Lock()
			fields := logrus.Fields{
				"preambles": app.preambleCount,
				"transient": app.transientCount,
				"malformed": app.malformedCount,
				"decoded":   app.decodedCount,
				"aircraft":  app.trk.Len(),
			}
			app.statsMu.Unlock()
			app.logger.WithFields(fields).Info("pipeline statistics")
		}
	}
}

// shutdown gracefully tears every component down: the shared context is
// cancelled first so the sample source and each stage terminate on their
// own (waiting up to 5 s), then the source, limiter, log rotator, and
// every sink and server are closed.
func (app *Application) shutdown() {
	app.logger.Info("shutting down")
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.source != nil {
		app.source.Close()
	}
	if app.limiter != nil {
		app.limiter.Stop()
	}
	if app.logRotator != nil {
		app.logRotator.Close()
	}
	if app.beastSink != nil {
		app.beastSink.Close()
	}
	if app.rawSink != nil {
		app.rawSink.Close()
	}
	if app.avrSink != nil {
		app.avrSink.Close()
	}
	if app.sbs1Sink != nil {
		app.sbs1Sink.Close()
	}
	if app.wsSink != nil {
		app.wsSink.Close()
	}
	if app.httpSrv != nil {
		app.httpSrv.Close()
	}
	if app.ctrlSrv != nil {
		app.ctrlSrv.Close()
	}

	app.logger.Info("shutdown completed")
}
