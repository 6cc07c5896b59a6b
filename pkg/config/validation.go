package config

import "fmt"

var validModulationLocks = map[string]bool{
	"":       true,
	"c4fm":   true,
	"gfsk":   true,
	"cqpsk":  true,
	"p2qpsk": true,
}

var validSourceKinds = map[string]bool{
	"sdr": true, "wav": true, "dibit": true, "tcp": true, "udp": true, "portaudio": true,
}

var validSinkKinds = map[string]bool{
	"stdout": true, "udp": true, "oss": true, "wav": true, "portaudio": true,
}

func validate(cfg *Config) error {
	if !validModulationLocks[cfg.Modulation.Lock] {
		return fmt.Errorf("modulation.lock: unknown value %q", cfg.Modulation.Lock)
	}

	if cfg.Trunking.Enabled {
		if cfg.Trunking.HangtimeSeconds <= 0 {
			return fmt.Errorf("trunking.hangtime_seconds must be positive")
		}
		if cfg.Trunking.RigctlPort <= 0 || cfg.Trunking.RigctlPort > 65535 {
			return fmt.Errorf("trunking.rigctl_port must be between 1 and 65535")
		}
	}

	if !validSourceKinds[cfg.Source.Kind] {
		return fmt.Errorf("source.kind: unknown value %q", cfg.Source.Kind)
	}
	if cfg.Source.Kind == "tcp" || cfg.Source.Kind == "udp" {
		if cfg.Source.Port <= 0 || cfg.Source.Port > 65535 {
			return fmt.Errorf("source.port must be between 1 and 65535")
		}
	}
	if (cfg.Source.Kind == "wav" || cfg.Source.Kind == "dibit") && cfg.Source.Path == "" {
		return fmt.Errorf("source.path is required for source.kind %q", cfg.Source.Kind)
	}

	if !validSinkKinds[cfg.Sink.Kind] {
		return fmt.Errorf("sink.kind: unknown value %q", cfg.Sink.Kind)
	}
	if cfg.Sink.Kind == "udp" && (cfg.Sink.Port <= 0 || cfg.Sink.Port > 65535) {
		return fmt.Errorf("sink.port must be between 1 and 65535")
	}
	if cfg.Sink.Kind == "oss" && cfg.Sink.Path == "" {
		return fmt.Errorf("sink.path is required for sink.kind \"oss\"")
	}
	if cfg.Sink.Kind == "wav" && cfg.Sink.WavDir == "" {
		return fmt.Errorf("sink.wav_dir is required for sink.kind \"wav\"")
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}

	if cfg.Keystream != "" {
		if _, err := ParseKeystreamSpec(cfg.Keystream); err != nil {
			return fmt.Errorf("keystream: %w", err)
		}
	}

	return nil
}
