package app

import "time"

// Default configuration constants
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 4000000    // 4 Msps, the pipeline's fixed internal rate
	DefaultGain       = 0          // 0 = device auto gain
)

// SinkConfig toggles one broadcaster and the TCP port it binds.
type SinkConfig struct {
	Enabled bool
	Port    int
}

// Config holds every setting the CLI surface (spec.md §6) and TOML
// config file expose. Flags win over the config file on conflict; see
// cmd/go1090's flag-binding order.
type Config struct {
	// RTL-SDR / replay source
	Frequency   uint32
	SampleRate  uint32
	Gain        int
	DeviceIndex int
	FilePath    string // --file: replay from a Complex32 file instead of hardware

	// Preamble detector
	PreambleThreshold float32 // --preamble-threshold, T_abs

	// CRC / raw-frame forwarding
	ForwardInvalid bool // forward CRC-invalid frames to raw sinks

	// Tracker
	Lifetime    time.Duration
	MaxAircraft int

	// Rate limiter
	RateLimitEnabled bool
	PositionRateMs   int
	VelocityRateMs   int
	IdentificationMs int
	MetadataRateMs   int

	// Sinks
	Beast     SinkConfig
	Raw       SinkConfig
	AVR       SinkConfig
	SBS1      SinkConfig
	WebSocket SinkConfig

	// Snapshot / control server. The snapshot/WebSocket HTTP server binds
	// to WebSocket.Port (spec.md §6's --websocket-port), the same sink the
	// map's /ws endpoint is mounted under.
	CtrlBind string

	// Ambient
	ConfigFile   string
	LogDir       string
	LogRotateUTC bool
	LogLevel     string
	FrontendPath string
	Verbose      bool
	ShowVersion  bool
}
