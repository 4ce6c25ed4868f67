package cli

import (
	"database/sql"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/api"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// Env carries what the commands operate on
type Env struct {
	DB        *sql.DB
	Server    *api.Server
	Config    *config.Config
	Retention *audit.Retention
	Logger    *observability.Logger

	// Log reports command outcomes as structured entries
	Log *logrus.Logger
	Out io.Writer
}

// NewEnv builds an Env from an opened runtime
func NewEnv(rt *api.Runtime) *Env {
	return &Env{
		DB:        rt.DB.Primary(),
		Server:    rt.Server,
		Config:    rt.Config,
		Retention: rt.Retention(),
		Logger:    rt.Logger,
		Log:       NewLogrus(os.Stderr, rt.Config.Observability.LogLevel),
		Out:       os.Stdout,
	}
}

// NewLogrus returns a JSON logrus logger at level, falling back to info
func NewLogrus(out io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) log() *logrus.Logger {
	if e.Log == nil {
		e.Log = NewLogrus(io.Discard, "info")
	}
	return e.Log
}
