// Command trunkwave decodes narrowband digital-voice and trunked-radio
// traffic from a live SDR feed, a captured file, or a network PCM stream,
// and plays or logs the recovered audio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trunkwave/trunkwave/pkg/classify"
	"github.com/trunkwave/trunkwave/pkg/config"
	"github.com/trunkwave/trunkwave/pkg/decode/dmr"
	"github.com/trunkwave/trunkwave/pkg/decode/dpmr"
	"github.com/trunkwave/trunkwave/pkg/decode/dstar"
	"github.com/trunkwave/trunkwave/pkg/decode/edacs"
	"github.com/trunkwave/trunkwave/pkg/decode/m17"
	"github.com/trunkwave/trunkwave/pkg/decode/nxdn"
	"github.com/trunkwave/trunkwave/pkg/decode/p25p1"
	"github.com/trunkwave/trunkwave/pkg/decode/p25p2"
	"github.com/trunkwave/trunkwave/pkg/decode/provoice"
	"github.com/trunkwave/trunkwave/pkg/decode/ysf"
	"github.com/trunkwave/trunkwave/pkg/groupdb"
	"github.com/trunkwave/trunkwave/pkg/logger"
	"github.com/trunkwave/trunkwave/pkg/mixer"
	"github.com/trunkwave/trunkwave/pkg/router"
	"github.com/trunkwave/trunkwave/pkg/runtime"
	"github.com/trunkwave/trunkwave/pkg/source"
	syncpattern "github.com/trunkwave/trunkwave/pkg/sync"
	"github.com/trunkwave/trunkwave/pkg/telemetry"
	"github.com/trunkwave/trunkwave/pkg/trunk"
	"github.com/trunkwave/trunkwave/pkg/vocoder"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

// vocoderOutputSampleRateHz is the fixed PCM rate every vocoder in this
// build decodes to (8 kHz, standard for AMBE/IMBE narrowband voice),
// independent of whatever rate the front end samples RF at.
const vocoderOutputSampleRateHz = 8000

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trunkwave",
		Version: fmt.Sprintf("%s (%s)", version, gitCommit),
		RunE:    runRoot,
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to a YAML config file")
	flags.Bool("validate", false, "validate configuration and exit")

	flags.Bool("mc", false, "lock modulation to C4FM")
	flags.Bool("mg", false, "lock modulation to GFSK")
	flags.Bool("mq", false, "lock modulation to CQPSK")
	flags.Bool("m2", false, "lock modulation to Phase 2 QPSK")

	flags.Bool("trunking", false, "enable P25 trunking")
	flags.Bool("tune-private-calls", false, "tune private calls")
	flags.Bool("tune-data-calls", false, "tune data calls")
	flags.Bool("tune-encrypted-calls", false, "tune encrypted calls")
	flags.Bool("allow-list-mode", false, "only tune talkgroups present in the allow list")
	flags.Float64("hangtime", 3.0, "seconds to hold a voice channel after last activity")
	flags.Uint32("cc-freq", 0, "control channel frequency in Hz")
	flags.String("rigctl-host", "", "rigctl host")
	flags.Int("rigctl-port", 4532, "rigctl port")

	flags.String("source", "", "sample source kind: sdr, wav, dibit, tcp, udp, portaudio")
	flags.String("source-path", "", "sample source file path")
	flags.String("source-host", "", "sample source network host")
	flags.Int("source-port", 0, "sample source network port")

	flags.String("sink", "", "audio sink kind: stdout, udp, oss, wav, portaudio")
	flags.String("sink-path", "", "audio sink device path (oss)")
	flags.String("sink-host", "", "audio sink network host (udp)")
	flags.Int("sink-port", 0, "audio sink network port (udp)")

	flags.String("groups-csv", "", "talkgroup policy CSV path")
	flags.String("lcn-csv", "", "LCN/channel map CSV path")

	flags.StringP("keystream", "S", "", "static keystream spec: bits:hexbytes[:offset[:step]]")

	bindProtocolFlags(flags)

	for _, name := range []string{
		"trunking", "tune-private-calls", "tune-data-calls", "tune-encrypted-calls",
		"allow-list-mode", "hangtime", "cc-freq", "rigctl-host", "rigctl-port",
		"source", "source-path", "source-host", "source-port",
		"sink", "sink-path", "sink-host", "sink-port",
		"groups-csv", "lcn-csv", "keystream",
	} {
		_ = viper.BindPFlag(flagToKey[name], flags.Lookup(name))
	}

	return cmd
}

// flagToKey maps a CLI flag name to the viper key config.Load's Unmarshal
// reads, the same BindPFlag wiring DMRHub's cobra root uses.
var flagToKey = map[string]string{
	"trunking":             "trunking.enabled",
	"tune-private-calls":   "trunking.tune_private_calls",
	"tune-data-calls":      "trunking.tune_data_calls",
	"tune-encrypted-calls": "trunking.tune_encrypted_calls",
	"allow-list-mode":      "trunking.allow_list_mode",
	"hangtime":             "trunking.hangtime_seconds",
	"cc-freq":              "trunking.cc_freq_hz",
	"rigctl-host":          "trunking.rigctl_host",
	"rigctl-port":          "trunking.rigctl_port",
	"source":               "source.kind",
	"source-path":          "source.path",
	"source-host":          "source.host",
	"source-port":          "source.port",
	"sink":                 "sink.kind",
	"sink-path":            "sink.path",
	"sink-host":            "sink.host",
	"sink-port":            "sink.port",
	"groups-csv":           "groupdb.groups_csv",
	"lcn-csv":              "groupdb.lcn_csv",
	"keystream":            "keystream",
}

func bindProtocolFlags(flags *cobra.FlagSet) {
	protocols := map[string]string{
		"dmr": "protocols.dmr", "ysf": "protocols.ysf",
		"p25-phase1": "protocols.p25_phase1", "p25-phase2": "protocols.p25_phase2",
		"nxdn": "protocols.nxdn", "m17": "protocols.m17", "dpmr": "protocols.dpmr",
		"dstar": "protocols.dstar", "provoice": "protocols.provoice", "edacs": "protocols.edacs",
	}
	for flagName, key := range protocols {
		flags.Bool(flagName, true, "enable the "+flagName+" decoder")
		_ = viper.BindPFlag(key, flags.Lookup(flagName))
	}
}

func runRoot(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	if mc, _ := flags.GetBool("mc"); mc {
		viper.Set("modulation.lock", "c4fm")
	}
	if mg, _ := flags.GetBool("mg"); mg {
		viper.Set("modulation.lock", "gfsk")
	}
	if mq, _ := flags.GetBool("mq"); mq {
		viper.Set("modulation.lock", "cqpsk")
	}
	if m2, _ := flags.GetBool("m2"); m2 {
		viper.Set("modulation.lock", "p2qpsk")
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("trunkwave: load config: %w", err)
	}

	if validateOnly, _ := flags.GetBool("validate"); validateOnly {
		fmt.Println("configuration is valid")
		return nil
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Info("starting trunkwave", logger.String("version", version), logger.String("commit", gitCommit))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, teardown, err := buildRuntime(cfg, log)
	if err != nil {
		return fmt.Errorf("trunkwave: build runtime: %w", err)
	}
	defer teardown()

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled || cfg.Web.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telemetry.ServeHTTP(ctx, cfg.Metrics.Enabled, cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path,
				cfg.Web.Enabled, cfg.Web.Host, cfg.Web.Port, telemetryRegistry, rt.Hub, log.WithComponent("telemetry")); err != nil {
				log.Error("telemetry server error", logger.Error(err))
			}
		}()
	}

	if rt.Hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.Hub.Run(ctx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	runErrCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErrCh <- rt.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
		rt.RequestExit()
		cancel()
	case err := <-runErrCh:
		cancel()
		if err != nil {
			log.Error("runtime stopped with error", logger.Error(err))
			wg.Wait()
			return err
		}
	}

	wg.Wait()
	log.Info("trunkwave stopped")
	return nil
}

// buildRuntime wires every configured component into a runtime.Runtime,
// following the source/sink/protocol selections in cfg. The returned
// teardown closes whatever sources/sinks/stores were opened, in reverse
// order, regardless of which path Run later takes.
func buildRuntime(cfg *config.Config, log *logger.Logger) (*runtime.Runtime, func(), error) {
	rt := runtime.New(log)
	var closers []func() error

	src, closeSrc, err := buildSource(cfg.Source)
	if err != nil {
		return nil, func() {}, err
	}
	rt.Source = src
	if closeSrc != nil {
		closers = append(closers, closeSrc)
	}

	sink, closeSink, err := buildSink(cfg.Sink)
	if err != nil {
		runCloseAll(closers)
		return nil, func() {}, err
	}
	if closeSink != nil {
		closers = append(closers, closeSink)
	}
	rt.Mixer = mixer.New(vocoder.Passthrough{}, sink, cfg.Sink.Stereo, vocoderOutputSampleRateHz)
	rt.Mixer.SetUseHPF(cfg.Sink.UseHPF)

	enabledProtocols := registerDecoders(rt.Router, cfg.Protocols)
	rt.Hunter = syncpattern.NewHunter(enabledProtocols)

	if mod, ok := forcedModulation(cfg.Modulation.Lock); ok {
		rt.Classifier.Force(mod)
		rt.Extractor.SetModulation(mod)
	}

	if cfg.Trunking.Enabled {
		tuner := rt.Source
		if cfg.Trunking.RigctlHost != "" {
			rigctl, err := source.NewRigctlTuner(src, 1, fmt.Sprintf("%s:%d", cfg.Trunking.RigctlHost, cfg.Trunking.RigctlPort))
			if err != nil {
				runCloseAll(closers)
				return nil, func() {}, fmt.Errorf("trunkwave: open rigctl tuner: %w", err)
			}
			rt.Source = rigctl
			tuner = rigctl
			closers = append(closers, rigctl.Close)
		}

		policy := trunk.DefaultPolicy()
		policy.AllowListMode = cfg.Trunking.AllowListMode
		policy.TunePrivateCalls = cfg.Trunking.TunePrivateCalls
		policy.TuneDataCalls = cfg.Trunking.TuneDataCalls
		policy.TuneEncCalls = cfg.Trunking.TuneEncryptedCalls
		policy.Hangtime = secondsToDuration(cfg.Trunking.HangtimeSeconds)
		policy.VCGrace = secondsToDuration(cfg.Trunking.VCGraceSeconds)
		policy.RingHold = secondsToDuration(cfg.Trunking.RingHoldSeconds)

		rt.Trunk = trunk.New(tuner, policy, log)
		rt.Trunk.SetCCFreq(cfg.Trunking.CCFreqHz)
	}

	if cfg.GroupDB.GroupsCSV != "" || cfg.GroupDB.LCNCSV != "" {
		groups, closeStore, err := buildGroupDB(cfg.GroupDB, log)
		if err != nil {
			runCloseAll(closers)
			return nil, func() {}, err
		}
		rt.Groups = groups
		if closeStore != nil {
			closers = append(closers, closeStore)
		}
	}

	reg := prometheus.NewRegistry()
	rt.Metrics = telemetry.NewMetrics(reg)
	telemetryRegistry = reg

	if cfg.Web.Enabled {
		rt.Hub = telemetry.NewHub(log.WithComponent("telemetry"))
	}

	if cfg.Logging.File != "" {
		w, err := telemetry.OpenEventLogWriter(cfg.Logging.File, log)
		if err != nil {
			runCloseAll(closers)
			return nil, func() {}, fmt.Errorf("trunkwave: open event log: %w", err)
		}
		rt.EventLog = w
		closers = append(closers, w.Close)
	}

	if cfg.Keystream != "" {
		if _, err := config.ParseKeystreamSpec(cfg.Keystream); err != nil {
			runCloseAll(closers)
			return nil, func() {}, fmt.Errorf("trunkwave: keystream spec: %w", err)
		}
	}

	return rt, func() { runCloseAll(closers) }, nil
}

// telemetryRegistry is the prometheus registry buildRuntime creates, read
// back by the telemetry HTTP server so /metrics exposes exactly this
// process's collectors rather than the global default registry.
var telemetryRegistry *prometheus.Registry

func runCloseAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// forcedModulation maps the CLI/config modulation-lock string to the
// classifier's Modulation type. "p2qpsk" forces the same slicer as
// "cqpsk": P25 Phase 2 rides on a CQPSK physical layer, with Phase 2's
// own framing handled downstream in the decoder and mixer, not here.
func forcedModulation(lock string) (classify.Modulation, bool) {
	switch lock {
	case "c4fm":
		return classify.ModC4FM, true
	case "gfsk":
		return classify.ModGFSK, true
	case "cqpsk", "p2qpsk":
		return classify.ModCQPSK, true
	default:
		return 0, false
	}
}

func buildSource(cfg config.SourceConfig) (source.Source, func() error, error) {
	rate := uint32(cfg.SampleRate)
	stall := time.Duration(cfg.StallMs) * time.Millisecond

	switch cfg.Kind {
	case "wav":
		src, err := source.OpenWAV(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "dibit":
		src, err := source.OpenDibitCapture(cfg.Path, rate)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "tcp":
		src, err := source.DialTCP(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), rate, stall)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "udp":
		src, err := source.ListenUDP(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), rate, stall)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "portaudio":
		src, err := source.OpenPortAudioDefault(rate, 960)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("trunkwave: source kind %q requires a live SDR front end, which is out of scope for this build", cfg.Kind)
	}
}

func buildSink(cfg config.SinkConfig) (mixer.Sink, func() error, error) {
	switch cfg.Kind {
	case "udp":
		sink, err := mixer.DialUDPSink(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case "oss":
		sink, err := mixer.OpenOSSSink(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case "wav":
		channels := 1
		if cfg.Stereo {
			channels = 2
		}
		sink, err := mixer.CreateWAVSink(cfg.WavDir, cfg.WavSuffix, channels, vocoderOutputSampleRateHz, time.Now())
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case "portaudio":
		channels := 1
		if cfg.Stereo {
			channels = 2
		}
		sink, err := mixer.OpenPortAudioSink(vocoderOutputSampleRateHz, channels, 160)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	default:
		sink := mixer.NewStdoutSink(os.Stdout)
		return sink, sink.Close, nil
	}
}

func buildGroupDB(cfg config.GroupDBConfig, log *logger.Logger) (*groupdb.GroupList, func() error, error) {
	if cfg.CachePath == "" {
		entries, err := groupdb.LoadGroupsCSV(cfg.GroupsCSV)
		if err != nil {
			return nil, nil, err
		}
		return groupdb.NewGroupList(entries), nil, nil
	}

	store, err := groupdb.Open(groupdb.Config{Path: cfg.CachePath}, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.GroupsCSV != "" {
		if _, err := store.ImportGroupsCSV(cfg.GroupsCSV); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	entries, err := store.LoadGroups()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return groupdb.NewGroupList(entries), store.Close, nil
}

func registerDecoders(r *router.Router, cfg config.ProtocolsConfig) []syncpattern.Protocol {
	var enabled []syncpattern.Protocol

	if cfg.DMR {
		dec := dmr.New()
		r.Register(syncpattern.ProtoDMRBSData, dec)
		r.Register(syncpattern.ProtoDMRBSVoice, dec)
		r.Register(syncpattern.ProtoDMRMSData, dec)
		r.Register(syncpattern.ProtoDMRMSVoice, dec)
		enabled = append(enabled, syncpattern.ProtoDMRBSData, syncpattern.ProtoDMRBSVoice,
			syncpattern.ProtoDMRMSData, syncpattern.ProtoDMRMSVoice)
	}
	if cfg.YSF {
		r.Register(syncpattern.ProtoYSF, ysf.New())
		enabled = append(enabled, syncpattern.ProtoYSF)
	}
	if cfg.P25Phase1 {
		r.Register(syncpattern.ProtoP25P1, p25p1.New())
		enabled = append(enabled, syncpattern.ProtoP25P1)
	}
	if cfg.P25Phase2 {
		r.Register(syncpattern.ProtoP25P2, p25p2.New())
		enabled = append(enabled, syncpattern.ProtoP25P2)
	}
	if cfg.NXDN {
		r.Register(syncpattern.ProtoNXDN, nxdn.New())
		enabled = append(enabled, syncpattern.ProtoNXDN)
	}
	if cfg.M17 {
		dec := m17.New()
		for _, p := range []syncpattern.Protocol{
			syncpattern.ProtoM17LSF, syncpattern.ProtoM17STR, syncpattern.ProtoM17PRE,
			syncpattern.ProtoM17PIV, syncpattern.ProtoM17PKT, syncpattern.ProtoM17BRT,
		} {
			r.Register(p, dec)
			enabled = append(enabled, p)
		}
	}
	if cfg.DPMR {
		dec := dpmr.New()
		for _, p := range []syncpattern.Protocol{
			syncpattern.ProtoDPMRFS1, syncpattern.ProtoDPMRFS2, syncpattern.ProtoDPMRFS3, syncpattern.ProtoDPMRFS4,
		} {
			r.Register(p, dec)
			enabled = append(enabled, p)
		}
	}
	if cfg.DStar {
		r.Register(syncpattern.ProtoDStar, dstar.New())
		enabled = append(enabled, syncpattern.ProtoDStar)
	}
	if cfg.ProVoice {
		r.Register(syncpattern.ProtoProVoice, provoice.New())
		enabled = append(enabled, syncpattern.ProtoProVoice)
	}
	if cfg.EDACS {
		r.Register(syncpattern.ProtoEDACS, edacs.New())
		enabled = append(enabled, syncpattern.ProtoEDACS)
	}

	return enabled
}
