package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/multiversemmo/MultiversePlatform-sub002/featureflag"
	qhttp "github.com/multiversemmo/MultiversePlatform-sub002/http"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/multiversemmo/MultiversePlatform-sub002/observer"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"github.com/multiversemmo/MultiversePlatform-sub002/tuning"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "quadtree_server_info",
		Help:        "Quadtree server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string         `cli:""        env:"QUADTREE_ADDR"                 help:"Listening address for observer connections."`
	AdminAddr          string         `cli:""        env:"QUADTREE_ADMIN_ADDR"           help:"Admin listening address."`
	LogLevel           string         `cli:""        env:"QUADTREE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool           `cli:""        env:"QUADTREE_LOG_INDENT"           help:"Indent logs."`
	TuningFile         string         `cli:""        env:"QUADTREE_TUNING_FILE"          help:"YAML file with the world bounds and the quadtree tuning. Reloaded on SIGHUP."`
	WorldName          string         `cli:",hidden" env:"QUADTREE_WORLD_NAME"           help:"The name of the world, used in logs and metrics."`
	FrameDuration      time.Duration  `cli:",hidden" env:"QUADTREE_FRAME_DURATION"       help:"The duration of a world frame."`
	ClientIdleTimeout  time.Duration  `cli:",hidden" env:"QUADTREE_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle observer will be disconnected."`
	LogSummaryInterval time.Duration  `cli:",hidden" env:"QUADTREE_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Wanderers          wandererConfig `cli:",hidden" env:"-"                             help:"Simulated objects configuration."`
	FeatureFlags       []string       `cli:",hidden" env:"QUADTREE_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool           `cli:""        env:"-"                             help:"Show version."`
	Help               bool           `cli:""        env:"-"                             help:"Show help."`
}

type wandererConfig struct {
	Count            int   `cli:",hidden" env:"QUADTREE_WANDERERS"                  help:"The number of simulated objects walking randomly in the world."`
	Step             int   `cli:",hidden" env:"QUADTREE_WANDERER_STEP"              help:"The maximum distance a simulated object moves each frame."`
	PerceptionRadius int   `cli:",hidden" env:"QUADTREE_WANDERER_PERCEPTION_RADIUS" help:"The perception radius of simulated objects. 0 disables their perceivers."`
	Seed             int64 `cli:",hidden" env:"QUADTREE_WANDERER_SEED"              help:"The seed of the random walks."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		LogLevel:           logs.InfoLevel.String(),
		WorldName:          "world",
		FrameDuration:      time.Millisecond * 50,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Wanderers: wandererConfig{
			Step:             25,
			PerceptionRadius: 200,
			Seed:             time.Now().UnixNano(),
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the quadtree world server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	featureFlags := featureflag.New(conf.FeatureFlags)

	tune, err := loadTuning(conf.TuningFile)
	if err != nil {
		logs.Fatal(err)
	}
	featureFlags.IfSet(featureflag.FlagDisableExtentPerceivers, func() {
		tune.ExtentPerceivers = false
	})

	tree, fixedPerceivers, err := tune.NewTree(conf.WorldName)
	if err != nil {
		logs.Fatal(errors.New("creating quadtree failed").Wrap(err))
	}
	for _, p := range fixedPerceivers {
		p.RegisterCallback(logNewsAndFrees(tree.Name()))
		tree.AddFixedPerceiver(p)
	}

	world := models.NewWorld(tree, conf.FrameDuration)
	defer world.Close()
	go world.StartDispatchFrames()

	featureFlags.IfNotSet(featureflag.FlagDisableWanderers, func() {
		if conf.Wanderers.Count == 0 {
			return
		}

		bounds := tree.LocalGeometry()
		if !tree.Geometry().ContainsGeometry(bounds) {
			bounds = tree.Geometry()
		}

		wanderer, err := models.NewWanderer(world,
			bounds,
			conf.Wanderers.Count,
			conf.Wanderers.Step,
			conf.Wanderers.PerceptionRadius,
			conf.Wanderers.Seed,
		)
		if err != nil {
			logs.Fatal(errors.New("spawning wanderers failed").Wrap(err))
		}
		world.HandleFrame(wanderer.HandleFrame)
	})

	go reloadTuningOnHangup(ctx, conf.TuningFile, tree)

	var perceiverIDs models.SequentialIDGenerator

	var service http.ServeMux
	service.Handle("/health", qhttp.HandleWithCORS(http.HandlerFunc(qhttp.HandleHealthCheck)))
	service.Handle("/version", qhttp.HandleWithCORS(qhttp.HandleVersion(version)))
	service.Handle("/ready", qhttp.HandleWithCORS(qhttp.HandleReadyCheck(func() bool {
		return ctx.Err() == nil
	})))
	service.Handle("/objects", qhttp.HandleWithCORS(qhttp.HandleWorldObjects(world)))

	service.Handle("/observe", websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h observer.Handler = &observer.WatchHandler{
				Tree:              tree,
				PerceiverIDs:      &perceiverIDs,
				ClientIdleTimeout: conf.ClientIdleTimeout,
				FeatureFlags:      featureFlags,
			}
			h = observer.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = observer.HandlerWithMetrics(h, tree.Name())
			defer h.Close()

			observer.Handle(ctx, conn, h)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", qhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/quadtree", qhttp.HandleTreeDebugInfo(tree))
	admin.HandleFunc("/debug/quadtree/invariants", qhttp.HandleTreeInvariants(tree))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("world", tree.Name()).
		WithTag("bounds", tree.Geometry().String()).
		WithTag("feature_flags", featureFlags.List()).
		Info("starting quadtree server")

	qhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			qhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.Wanderers.Count < 0 {
		return errors.New("wanderer count can't be negative").
			WithTag("wanderers", conf.Wanderers.Count)
	}

	if conf.Wanderers.Count > 0 && conf.Wanderers.Step <= 0 {
		return errors.New("wanderer step must be positive").
			WithTag("wanderer_step", conf.Wanderers.Step)
	}

	if conf.WorldName == "" {
		return errors.New("world name is empty")
	}
	return nil
}

func loadTuning(path string) (tuning.Tuning, error) {
	if path == "" {
		return tuning.Default(), nil
	}
	return tuning.Load(path)
}

// reloadTuningOnHangup applies the limits of the tuning file each time the
// process receives SIGHUP.
func reloadTuningOnHangup(ctx context.Context, path string, tree *quadtree.QuadTree) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return

		case <-hangup:
			if path == "" {
				logs.WithTag("world", tree.Name()).
					Info("no tuning file to reload")
				continue
			}

			tune, err := tuning.Load(path)
			if err == nil {
				err = tune.Apply(tree)
			}
			if err != nil {
				logs.Warn(errors.New("reloading tuning failed").
					WithTag("path", path).
					Wrap(err))
				continue
			}

			logs.WithTag("world", tree.Name()).
				WithTag("path", path).
				Info("tuning reloaded")
		}
	}
}

func logNewsAndFrees(world string) quadtree.PerceiverCallback {
	return func(p quadtree.Perceiver, news, frees []quadtree.Element) {
		logs.WithTag("world", world).
			WithTag("perceiver_id", p.ID()).
			WithTag("news", len(news)).
			WithTag("frees", len(frees)).
			Debug("fixed perceiver news and frees")
	}
}
