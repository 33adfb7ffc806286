// Command lensing renders a black hole with the progressive ray marcher and
// writes the finished frame to disk.
//
// Usage:
//
//	lensing -width 320 -height 180 -scale 4 -distance 20 -elevation 5
//
// On Unix, SIGUSR1 saves the current frame and SIGHUP restarts the render.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/lensing"
	"github.com/gogpu/lensing/backend"
	_ "github.com/gogpu/lensing/backend/software"
	_ "github.com/gogpu/lensing/backend/wgpu"
	"github.com/gogpu/lensing/gpucore"
)

type options struct {
	backend   string
	width     int
	height    int
	scale     int
	fov       float64
	distance  float64
	elevation float64
	sky       string
	config    string
	out       string
	prefix    string
	format    string
	interval  float64
	maxTicks  int
	verbose   bool
}

func main() {
	var o options
	flag.StringVar(&o.backend, "backend", "", "compute backend: software or wgpu (default: best available)")
	flag.IntVar(&o.width, "width", 320, "viewport width")
	flag.IntVar(&o.height, "height", 180, "viewport height")
	flag.IntVar(&o.scale, "scale", 0, "ray buffer scale factor (default from config)")
	flag.Float64Var(&o.fov, "fov", 60, "vertical field of view in degrees")
	flag.Float64Var(&o.distance, "distance", 20, "camera distance from the black hole")
	flag.Float64Var(&o.elevation, "elevation", 5, "camera elevation above the disk plane in degrees")
	flag.StringVar(&o.sky, "sky", "", "equirectangular sky image")
	flag.StringVar(&o.config, "config", "", "JSON render config")
	flag.StringVar(&o.out, "out", "", "output directory (default from config)")
	flag.StringVar(&o.prefix, "prefix", "", "output filename prefix")
	flag.StringVar(&o.format, "format", "", "export format: jpeg, png or webp")
	flag.Float64Var(&o.interval, "interval", -1, "seconds between completeness polls")
	flag.IntVar(&o.maxTicks, "max-ticks", 0, "stop after this many ticks (0: until complete)")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("lensing: %v", err)
	}
}

func run(o options) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	lensing.SetLogger(logger)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	sky := lensing.DefaultSky()
	if o.sky != "" {
		if sky, err = lensing.LoadSky(o.sky); err != nil {
			return err
		}
	}

	adapter, err := openAdapter(o.backend, logger)
	if err != nil {
		return err
	}
	defer adapter.Close()

	d, err := lensing.NewDriver(adapter,
		lensing.WithConfig(cfg),
		lensing.WithCamera(lensing.OrbitCamera(float32(o.distance), float32(o.elevation), float32(o.fov))),
		lensing.WithViewport(o.width, o.height),
		lensing.WithSky(sky),
	)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return renderLoop(ctx, d, o.maxTicks)
	})
	g.Go(func() error {
		handleSignals(ctx, done, d)
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	path, err := d.Save()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s\n", path)
	return nil
}

func loadConfig(o options) (lensing.Config, error) {
	cfg := lensing.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = lensing.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}
	if o.scale > 0 {
		cfg.ScaleFactor = o.scale
	}
	if o.out != "" {
		cfg.OutputDir = o.out
	}
	if o.prefix != "" {
		cfg.FilenamePrefix = o.prefix
	}
	if o.format != "" {
		cfg.ExportFormat = o.format
	}
	if o.interval >= 0 {
		cfg.UpdateInterval = o.interval
	}
	// The final frame is saved once below.
	cfg.SaveToFile = false
	return cfg.Normalize(), nil
}

func openAdapter(name string, logger *slog.Logger) (gpucore.Adapter, error) {
	if name == "" {
		return backend.OpenDefault(logger)
	}
	a, err := backend.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, backend.Available())
	}
	return a, nil
}

// renderLoop ticks d until the render completes, maxTicks is reached or ctx
// is done.
func renderLoop(ctx context.Context, d *lensing.Driver, maxTicks int) error {
	p := message.NewPrinter(language.English)
	last := -1.0
	for tick := 1; maxTicks <= 0 || tick <= maxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Tick(); err != nil {
			return err
		}
		if d.Complete() {
			p.Fprintf(os.Stderr, "\rtick %d: complete\n", tick)
			return nil
		}
		if prog := d.Progress(); prog != last {
			last = prog
			p.Fprintf(os.Stderr, "\rtick %d: %.1f%% of rays done", tick, prog*100)
		}
	}
	p.Fprintf(os.Stderr, "\nstopped after %d ticks\n", maxTicks)
	return nil
}
