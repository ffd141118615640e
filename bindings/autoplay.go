package bindings

import (
	"context"

	"github.com/pokethrow/pokethrow-desktop/internal/autoplay"
)

// AutoplayRequest configures a scripted run from the page.
type AutoplayRequest struct {
	Source     string `json:"source"`
	Encounters int    `json:"encounters"`
	MaxThrows  int    `json:"maxThrows"`
	ServerSeed string `json:"serverSeed"`
	ClientSeed string `json:"clientSeed"`
	// Online fetches real records; Record saves captures to history.
	Online bool `json:"online"`
	Record bool `json:"record"`
}

// AutoplayModule runs throw scripts headlessly.
type AutoplayModule struct {
	d *Desktop
}

// Check loads a script and reports whether it defines aim.
func (m *AutoplayModule) Check(source string) error {
	_, err := autoplay.NewRunner(m.d.ctx, source, autoplay.Options{Config: m.d.cfg.Encounter()})
	return err
}

// Run plays the script and returns its report. The report is returned even
// when the script fails partway.
func (m *AutoplayModule) Run(req AutoplayRequest) (*autoplay.Report, error) {
	opts := autoplay.Options{
		Encounters: req.Encounters,
		MaxThrows:  req.MaxThrows,
		ServerSeed: req.ServerSeed,
		ClientSeed: req.ClientSeed,
		Config:     m.d.cfg.Encounter(),
	}
	if req.Online || req.Record {
		svc, err := m.d.services()
		if err != nil {
			return nil, err
		}
		opts.Fetcher = svc.PokeAPI
		if req.Record {
			opts.Notifier = m.d.recorder
		}
	}
	return m.run(m.d.ctx, req.Source, opts)
}

func (m *AutoplayModule) run(ctx context.Context, source string, opts autoplay.Options) (*autoplay.Report, error) {
	r, err := autoplay.NewRunner(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	rep, err := r.Run(ctx)
	if rep != nil {
		m.d.logger.Printf("autoplay: %d encounters, %d captures", rep.Encounters, rep.Captures)
	}
	return rep, err
}
