package lensing

// Option configures a Driver during creation.
//
// Example:
//
//	d, err := lensing.NewDriver(adapter,
//		lensing.WithViewport(640, 360),
//		lensing.WithCamera(lensing.OrbitCamera(30, 10, 45)),
//	)
type Option func(*driverOptions)

// driverOptions holds optional configuration for Driver creation.
type driverOptions struct {
	config   Config
	camera   Camera
	viewport Viewport
	sky      *Sky
	clock    Clock
	writer   FrameWriter
}

// defaultOptions returns the default driver options.
func defaultOptions() driverOptions {
	return driverOptions{
		config:   DefaultConfig(),
		camera:   DefaultCamera(),
		viewport: Viewport{Width: 320, Height: 180},
		sky:      nil, // DefaultSky
		clock:    SystemClock{},
		writer:   nil, // Exporter built from Config at save time
	}
}

// WithConfig sets the render configuration.
func WithConfig(cfg Config) Option {
	return func(o *driverOptions) {
		o.config = cfg
	}
}

// WithCamera sets the camera.
func WithCamera(c Camera) Option {
	return func(o *driverOptions) {
		o.camera = c
	}
}

// WithViewport sets the display size. The ray buffers are
// Config.ScaleFactor times larger.
func WithViewport(width, height int) Option {
	return func(o *driverOptions) {
		o.viewport = Viewport{Width: width, Height: height}
	}
}

// WithSky sets the environment map sampled by escaping rays.
func WithSky(s *Sky) Option {
	return func(o *driverOptions) {
		o.sky = s
	}
}

// WithClock sets the clock used for poll throttling and elapsed time.
// Use this to inject a fake clock in tests.
func WithClock(c Clock) Option {
	return func(o *driverOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithExporter sets where Save writes frames. By default frames are written
// by an Exporter configured from Config.
func WithExporter(w FrameWriter) Option {
	return func(o *driverOptions) {
		o.writer = w
	}
}
