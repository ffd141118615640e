// Package bindings exposes the game to the desktop frontend. Each module is
// bound with Wails; the page calls its methods and listens for the events
// they emit.
package bindings

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/pokethrow/pokethrow-desktop/internal/api"
	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/config"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
)

// Emitter publishes a named event to the page.
type Emitter func(ctx context.Context, name string, data ...any)

// Desktop owns the services behind every bound module and the local API.
// Construct it before wails.Run, call Startup from OnStartup and Shutdown
// from OnBeforeClose.
type Desktop struct {
	ctx    context.Context
	cfg    config.Config
	logger *log.Logger
	emit   Emitter

	svc      *app.Services
	recorder *history.Recorder
	server   *api.Server
	token    string

	Game     *GameModule
	History  *HistoryModule
	Fairness *FairnessModule
	Autoplay *AutoplayModule
}

// New prepares the modules. Nothing is opened until Startup.
func New(cfg config.Config, logger *log.Logger) *Desktop {
	if logger == nil {
		logger = log.Default()
	}
	d := &Desktop{
		cfg:    cfg,
		logger: logger,
		emit:   runtime.EventsEmit,
		token:  uuid.NewString(),
	}
	d.Game = &GameModule{d: d, sessions: make(map[string]*game)}
	d.History = &HistoryModule{d: d}
	d.Fairness = &FairnessModule{d: d}
	d.Autoplay = &AutoplayModule{d: d}
	return d
}

// Bind lists the objects whose methods the frontend may call.
func (d *Desktop) Bind() []any {
	return []any{d.Game, d.History, d.Fairness, d.Autoplay}
}

// Startup opens the services and, when enabled, starts the local API.
func (d *Desktop) Startup(ctx context.Context) error {
	d.ctx = ctx
	svc, err := app.Open(ctx, d.cfg, d.logger, app.Options{})
	if err != nil {
		return err
	}
	d.svc = svc
	d.recorder = history.NewRecorder(svc.History, 32, d.logger, func(e history.Entry) {
		d.emit(d.ctx, EventHistorySaved, e)
	})

	if d.cfg.APIEnabled {
		d.server = svc.API(d.token)
		if err := d.server.Start(d.cfg.APIAddr); err != nil {
			d.logger.Printf("local api disabled: %v", err)
			d.server = nil
		}
	}
	return nil
}

// Shutdown ends every game, stops the API and closes the stores.
func (d *Desktop) Shutdown(ctx context.Context) error {
	d.Game.endAll()
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Printf("api shutdown: %v", err)
		}
	}
	if d.recorder != nil {
		d.recorder.Close()
	}
	if d.svc == nil {
		return nil
	}
	return d.svc.Close()
}

func (d *Desktop) services() (*app.Services, error) {
	if d.svc == nil {
		return nil, fmt.Errorf("bindings: services not started")
	}
	return d.svc, nil
}

// APIInfo tells the page where the local API listens.
type APIInfo struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	Header  string `json:"header"`
	Token   string `json:"token"`
}

// APIInfo is bound through the game module.
func (d *Desktop) apiInfo() APIInfo {
	if d.server == nil {
		return APIInfo{}
	}
	return APIInfo{
		URL:     "http://" + d.server.Addr(),
		Enabled: true,
		Header:  api.TokenHeader,
		Token:   d.token,
	}
}
