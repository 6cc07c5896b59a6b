// Package config loads trunkwave's configuration from a YAML file,
// environment variables, and CLI flags (bound via viper), with
// modulation, trunking, protocol, source/sink, and telemetry sections.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Modulation ModulationConfig `mapstructure:"modulation"`
	Trunking   TrunkingConfig   `mapstructure:"trunking"`
	Protocols  ProtocolsConfig  `mapstructure:"protocols"`
	Source     SourceConfig     `mapstructure:"source"`
	Sink       SinkConfig       `mapstructure:"sink"`
	GroupDB    GroupDBConfig    `mapstructure:"groupdb"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Web        WebConfig        `mapstructure:"web"`
	Keystream  string           `mapstructure:"keystream"`
}

// ModulationConfig forces a fixed modulation instead of running the
// classifier's blind hunt, mirroring the CLI's -mc/-mg/-mq/-m2 flags.
type ModulationConfig struct {
	Lock string `mapstructure:"lock"` // "", "c4fm", "gfsk", "cqpsk", "p2qpsk"
}

// TrunkingConfig mirrors the CLI's trunking toggle group: tune policy per
// call class, hangtime, and the allow-list switch.
type TrunkingConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	TunePrivateCalls    bool    `mapstructure:"tune_private_calls"`
	TuneDataCalls       bool    `mapstructure:"tune_data_calls"`
	TuneEncryptedCalls  bool    `mapstructure:"tune_encrypted_calls"`
	AllowListMode       bool    `mapstructure:"allow_list_mode"`
	HangtimeSeconds     float64 `mapstructure:"hangtime_seconds"`
	VCGraceSeconds      float64 `mapstructure:"vc_grace_seconds"`
	RingHoldSeconds     float64 `mapstructure:"ring_hold_seconds"`
	CCFreqHz            uint32  `mapstructure:"cc_freq_hz"`
	RigctlHost          string  `mapstructure:"rigctl_host"`
	RigctlPort          int     `mapstructure:"rigctl_port"`
}

// ProtocolsConfig enables/disables each protocol decoder independently;
// a disabled protocol's sync patterns are excluded from the hunter.
type ProtocolsConfig struct {
	DMR      bool `mapstructure:"dmr"`
	YSF      bool `mapstructure:"ysf"`
	P25Phase1 bool `mapstructure:"p25_phase1"`
	P25Phase2 bool `mapstructure:"p25_phase2"`
	NXDN     bool `mapstructure:"nxdn"`
	M17      bool `mapstructure:"m17"`
	DPMR     bool `mapstructure:"dpmr"`
	DStar    bool `mapstructure:"dstar"`
	ProVoice bool `mapstructure:"provoice"`
	EDACS    bool `mapstructure:"edacs"`
}

// SourceConfig selects and configures the sample source.
type SourceConfig struct {
	Kind       string `mapstructure:"kind"` // "sdr", "wav", "dibit", "tcp", "udp", "portaudio"
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	SampleRate int    `mapstructure:"sample_rate"`
	StallMs    int    `mapstructure:"stall_timeout_ms"`
}

// SinkConfig selects and configures the audio sink.
type SinkConfig struct {
	Kind       string `mapstructure:"kind"` // "stdout", "udp", "oss", "wav", "portaudio"
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Stereo     bool   `mapstructure:"stereo"`
	UseHPF     bool   `mapstructure:"use_hpf"`
	WavDir     string `mapstructure:"wav_dir"`
	WavSuffix  string `mapstructure:"wav_suffix"`
}

// GroupDBConfig points at the talkgroup/LCN CSV sources and the sqlite
// cache they're imported into.
type GroupDBConfig struct {
	GroupsCSV string `mapstructure:"groups_csv"`
	LCNCSV    string `mapstructure:"lcn_csv"`
	CachePath string `mapstructure:"cache_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// WebConfig holds the telemetry websocket/UI server configuration.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Load loads configuration from file, environment variables, and
// previously-set defaults/flags, then validates it.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/trunkwave")
	}

	viper.SetEnvPrefix("TRUNKWAVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// fine, use defaults
		} else if os.IsNotExist(err) {
			// explicitly-specified file missing is also fine
		} else {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("trunking.enabled", false)
	viper.SetDefault("trunking.tune_private_calls", false)
	viper.SetDefault("trunking.tune_data_calls", false)
	viper.SetDefault("trunking.tune_encrypted_calls", false)
	viper.SetDefault("trunking.allow_list_mode", false)
	viper.SetDefault("trunking.hangtime_seconds", 3.0)
	viper.SetDefault("trunking.vc_grace_seconds", 0.75)
	viper.SetDefault("trunking.ring_hold_seconds", 0.75)
	viper.SetDefault("trunking.rigctl_port", 4532)

	viper.SetDefault("protocols.dmr", true)
	viper.SetDefault("protocols.ysf", true)
	viper.SetDefault("protocols.p25_phase1", true)
	viper.SetDefault("protocols.p25_phase2", true)
	viper.SetDefault("protocols.nxdn", true)
	viper.SetDefault("protocols.m17", true)
	viper.SetDefault("protocols.dpmr", true)
	viper.SetDefault("protocols.dstar", true)
	viper.SetDefault("protocols.provoice", true)
	viper.SetDefault("protocols.edacs", true)

	viper.SetDefault("source.kind", "sdr")
	viper.SetDefault("source.sample_rate", 48000)
	viper.SetDefault("source.stall_timeout_ms", 2000)

	viper.SetDefault("sink.kind", "stdout")
	viper.SetDefault("sink.stereo", true)
	viper.SetDefault("sink.use_hpf", true)
	viper.SetDefault("sink.wav_suffix", "trunkwave")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.host", "0.0.0.0")
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
}
