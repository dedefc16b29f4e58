package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	version     string
	datasetPath string
	watch       bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithDataset overrides the dataset file and whether to keep watching it.
func WithDataset(path string, watch bool) Option {
	return func(a *application) {
		if path != "" {
			a.datasetPath = path
		}
		a.watch = a.watch || watch
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	if app.datasetPath == "" {
		app.datasetPath = app.config.Dataset.Path
	}
	app.watch = app.watch || app.config.Dataset.Watch
	return app, nil
}
