package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go1090/internal/app"
	"go1090/internal/config"
)

func main() {
	var cfg app.Config
	var rateLimitOn bool
	var beastOn, rawOn, avrOn, sbs1On, wsOn bool
	var gainDB float32

	rootCmd := &cobra.Command{
		Use:   "go1090",
		Short: "ADS-B decoder (dump1090-style)",
		Long: `ADS-B decoder: captures 1090 MHz I/Q samples (from RTL-SDR or a
replayed Complex32 file), demodulates and decodes ADS-B extended
squitter frames, tracks per-aircraft state, and broadcasts BEAST, Raw,
AVR, SBS-1, and WebSocket feeds.

Example usage:
  go1090 --gain 40 --beast --raw --sbs1
  go1090 --file capture.c32 --rate-limit --websocket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ShowVersion {
				app.ShowVersion()
				return nil
			}

			file, err := config.Load(cfg.ConfigFile)
			if err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
			if cfg.LogLevel == "" {
				cfg.LogLevel = file.LogLevel
			}
			if cfg.CtrlBind == "" {
				cfg.CtrlBind = file.CtrlPortBind
			}
			if cfg.CtrlBind == "" {
				cfg.CtrlBind = ":30004"
			}
			if cfg.FrontendPath == "" {
				cfg.FrontendPath = file.FrontendPath
			}

			cfg.Gain = int(gainDB)
			cfg.RateLimitEnabled = rateLimitOn
			cfg.Beast.Enabled = beastOn
			cfg.Raw.Enabled = rawOn
			cfg.AVR.Enabled = avrOn
			cfg.SBS1.Enabled = sbs1On
			cfg.WebSocket.Enabled = wsOn

			application := app.NewApplication(cfg)
			return application.Start()
		},
	}

	flags := rootCmd.Flags()

	// Source
	flags.Uint32VarP(&cfg.Frequency, "frequency", "f", app.DefaultFrequency, "Frequency to tune to (Hz)")
	flags.Uint32VarP(&cfg.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample rate (Hz)")
	flags.Float32Var(&gainDB, "gain", float32(app.DefaultGain), "SDR gain (dB); 0 for auto")
	flags.IntVarP(&cfg.DeviceIndex, "device", "d", 0, "RTL-SDR device index")
	flags.StringVar(&cfg.FilePath, "file", "", "Replay I/Q samples from a Complex32 file instead of RTL-SDR hardware")

	// Preamble detector
	flags.Float32Var(&cfg.PreambleThreshold, "preamble-threshold", 10.0, "Absolute preamble correlation threshold (T_abs)")

	// CRC policy
	flags.BoolVar(&cfg.ForwardInvalid, "forward-invalid", false, "Forward CRC-invalid frames to raw sinks")

	// Tracker
	flags.DurationVar(&cfg.Lifetime, "lifetime", 0, "Aircraft state lifetime before eviction (default 60s)")
	flags.IntVar(&cfg.MaxAircraft, "max-aircraft", 0, "Maximum tracked aircraft (0 = unbounded)")

	// Rate limiter
	flags.BoolVar(&rateLimitOn, "rate-limit", false, "Enable the per-aircraft rate limiter on state sinks")
	flags.IntVar(&cfg.PositionRateMs, "position-rate-ms", 500, "Position emission interval (ms)")
	flags.IntVar(&cfg.VelocityRateMs, "velocity-rate-ms", 1000, "Velocity emission interval (ms)")
	flags.IntVar(&cfg.IdentificationMs, "identification-rate-ms", 0, "Identification emission interval (ms); 0 = immediate")
	flags.IntVar(&cfg.MetadataRateMs, "metadata-rate-ms", 5000, "Metadata emission interval (ms)")

	// Sinks
	flags.BoolVar(&beastOn, "beast", true, "Enable BEAST binary sink")
	flags.IntVar(&cfg.Beast.Port, "beast-port", 30005, "BEAST sink TCP port")
	flags.BoolVar(&rawOn, "raw", true, "Enable Raw-hex sink")
	flags.IntVar(&cfg.Raw.Port, "raw-port", 30002, "Raw-hex sink TCP port")
	flags.BoolVar(&avrOn, "avr", false, "Enable AVR sink")
	flags.IntVar(&cfg.AVR.Port, "avr-port", 30001, "AVR sink TCP port")
	flags.BoolVar(&sbs1On, "sbs1", false, "Enable SBS-1 (BaseStation CSV) sink")
	flags.IntVar(&cfg.SBS1.Port, "sbs1-port", 30003, "SBS-1 sink TCP port")
	flags.BoolVar(&wsOn, "websocket", false, "Enable WebSocket sink")
	flags.IntVar(&cfg.WebSocket.Port, "websocket-port", 8080, "WebSocket/snapshot HTTP port")

	// Snapshot / control server
	flags.StringVar(&cfg.CtrlBind, "ctrlport-bind", "", "Control port bind address (overrides config file)")
	flags.StringVar(&cfg.FrontendPath, "frontend-path", "", "Static web map directory (overrides config file)")

	// Ambient
	flags.StringVarP(&cfg.ConfigFile, "config", "c", "", "TOML configuration file path")
	flags.StringVarP(&cfg.LogDir, "log-dir", "l", "./logs", "Log directory")
	flags.BoolVarP(&cfg.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (overrides config file)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose (debug) logging")
	flags.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
