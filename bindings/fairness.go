package bindings

import (
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/sim"
)

// FairnessModule publishes the seed commitment and lets the player check
// rolls, odds and simulated runs.
type FairnessModule struct {
	d *Desktop
}

// Commitment returns the server seed hash, client seed and next nonce.
func (m *FairnessModule) Commitment() (fairness.Commitment, error) {
	svc, err := m.d.services()
	if err != nil {
		return fairness.Commitment{}, err
	}
	return svc.Commitment(), nil
}

// RotateSeeds reveals the current server seed and commits to a new one.
// An empty clientSeed keeps the current client seed.
func (m *FairnessModule) RotateSeeds(clientSeed string) (fairness.Reveal, error) {
	svc, err := m.d.services()
	if err != nil {
		return fairness.Reveal{}, err
	}
	return svc.RotateSeeds(clientSeed)
}

// VerifyRoll recomputes the roll at nonce and compares it with value
func (m *FairnessModule) VerifyRoll(serverSeed, clientSeed string, nonce uint64, value float64) bool {
	return fairness.Verify(serverSeed, clientSeed, nonce, value)
}

// HashServerSeed returns the published form of a server seed
func (m *FairnessModule) HashServerSeed(serverSeed string) string {
	return fairness.HashSeed(serverSeed)
}

// Odds returns the capture rate grid; empty slices use the defaults.
func (m *FairnessModule) Odds(forces, accuracies []float64) (capture.OddsTable, error) {
	return m.d.cfg.Encounter().Capture.OddsTable(forces, accuracies)
}

// Simulate replays req.Attempts seeded captures.
func (m *FairnessModule) Simulate(req sim.Request) (*sim.Result, error) {
	if req.Tuning == nil {
		t := m.d.cfg.Encounter().Capture
		req.Tuning = &t
	}
	return sim.Run(m.d.ctx, req)
}
