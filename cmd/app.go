package cmd

import (
	"context"
	"io"

	"github.com/jmurray2011/parrot/internal/config"
	"github.com/jmurray2011/parrot/internal/engine"
	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/output"
	"github.com/jmurray2011/parrot/internal/ui"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appContextKey is the context key for the App instance.
type appContextKey struct{}

// App holds the application dependencies that can be injected for testing.
type App struct {
	Config       *config.Config
	Fs           afero.Fs
	Render       *ui.Renderer
	Log          logging.Logger
	OutputFormat output.Format
	NoColor      bool
}

// NewApp loads and validates the configuration from viper.
func NewApp() (*App, error) {
	if configErr != nil {
		return nil, configErr
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	log := logging.Default()
	if verbose || cfg.Debug {
		log.SetLevel(logging.LevelDebug)
	}

	r := render
	if r == nil {
		r = ui.NewRendererWithOptions(ui.WithNoColor(noColor), ui.WithQuiet(quiet))
	}

	return &App{
		Config:       cfg,
		Fs:           afero.NewOsFs(),
		Render:       r,
		Log:          log,
		OutputFormat: format,
		NoColor:      noColor,
	}, nil
}

// NewAppWithConfig creates an App around cfg and fsys.
// This is primarily used for testing.
func NewAppWithConfig(cfg *config.Config, fsys afero.Fs, renderer *ui.Renderer) *App {
	return &App{
		Config:       cfg,
		Fs:           fsys,
		Render:       renderer,
		Log:          logging.NopLogger{},
		OutputFormat: output.FormatText,
		NoColor:      true,
	}
}

// GetApp retrieves the App from the command context, loading one from the
// configuration when none was injected.
func GetApp(cmd *cobra.Command) (*App, error) {
	if ctx := cmd.Context(); ctx != nil {
		if app, ok := ctx.Value(appContextKey{}).(*App); ok {
			return app, nil
		}
	}
	return NewApp()
}

// SetApp stores the App in the context for a command.
func SetApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// Engine builds the log engine for the configured directory and name.
func (a *App) Engine() *engine.Engine {
	eng := engine.New(a.Fs, a.Config.LogDir, a.Config.LogName, a.Config.Aliases)
	eng.Logger = a.Log
	return eng
}

// Formatter returns a formatter writing to w in the selected format.
func (a *App) Formatter(w io.Writer) *output.Formatter {
	return output.NewFormatter(string(a.OutputFormat), w, ui.WithNoColor(a.NoColor))
}
