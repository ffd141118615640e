package bindings

import (
	"github.com/pokethrow/pokethrow-desktop/internal/history"
)

// HistoryModule reads and clears the capture history.
type HistoryModule struct {
	d *Desktop
}

func (m *HistoryModule) store() (*history.Store, error) {
	svc, err := m.d.services()
	if err != nil {
		return nil, err
	}
	return svc.History, nil
}

// List returns one page of captures, newest first. Pages start at 1.
func (m *HistoryModule) List(page, perPage int) (history.Page, error) {
	s, err := m.store()
	if err != nil {
		return history.Page{}, err
	}
	return s.List(m.d.ctx, page, perPage)
}

// Get returns one capture by local id
func (m *HistoryModule) Get(localID string) (history.Entry, error) {
	s, err := m.store()
	if err != nil {
		return history.Entry{}, err
	}
	return s.Get(m.d.ctx, localID)
}

// Count returns the number of captures
func (m *HistoryModule) Count() (int, error) {
	s, err := m.store()
	if err != nil {
		return 0, err
	}
	return s.Count(m.d.ctx)
}

// Clear deletes every capture and reports how many were removed.
func (m *HistoryModule) Clear() (int64, error) {
	s, err := m.store()
	if err != nil {
		return 0, err
	}
	n, err := s.Clear(m.d.ctx)
	if err != nil {
		return 0, err
	}
	m.d.logger.Printf("history cleared (%d entries)", n)
	return n, nil
}
