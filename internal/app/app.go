// Package app assembles the runtime pieces every command shares: the
// configuration, the logger and termination signal handling.
package app

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/caretech-ops/fleetsweep/internal/redact"
)

// AppName is the name of this application, it prefixes env configuration vars.
const AppName = "fleetsweep"

// App holds attributes for the fleetsweep application.
type App struct {
	// Sync waitgroup to wait for running go routines on termination.
	SyncWG *sync.WaitGroup
	// Fleetsweep configuration.
	Config *Configuration
	// TermCh is the channel to terminate the app based on a signal.
	TermCh chan os.Signal
	// Logger is the app logger.
	Logger *logrus.Logger

	v *viper.Viper
}

// New returns a new instance of the fleetsweep app.
func New(cfgFile, loglevel string) (*App, error) {
	app := &App{
		Config: &Configuration{},
		SyncWG: &sync.WaitGroup{},
		Logger: logrus.New(),
		TermCh: make(chan os.Signal, 1),
		v:      viper.New(),
	}

	if err := app.LoadConfiguration(cfgFile); err != nil {
		return nil, err
	}

	// the command line flag overrides the configured level
	if loglevel != "" {
		app.Config.LogLevel = loglevel
	}

	switch app.Config.LogLevel {
	case "debug":
		app.Logger.Level = logrus.DebugLevel
	case "trace":
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	// nothing credential-shaped reaches a log sink
	app.Logger.AddHook(redact.Hook{})

	if app.Config.LogFile != "" {
		app.Logger.SetOutput(&lumberjack.Logger{
			Filename:   app.Config.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	// register for SIGINT, SIGTERM
	signal.Notify(app.TermCh, syscall.SIGINT, syscall.SIGTERM)

	return app, nil
}
