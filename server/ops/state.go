package ops

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// ErrTopologyPending is returned while the first topology fetch has not
// resolved yet.
var ErrTopologyPending = errors.New("topology not loaded yet", j.C("ERR_b4f92d67a0c153e8"))

// State ties the payload slots to the interaction state of the tree view.
// The editor is created lazily from the first resolved topology and then
// replays any persisted node edits over it.
type State struct {
	Loader *Loader
	Store  Store

	eMu    sync.Mutex
	editor *Editor
}

func NewState(l *Loader, s Store) *State {
	return &State{Loader: l, Store: s}
}

// Editor returns the node editor, seeding it from the loaded topology on
// first use.
func (s *State) Editor(ctx context.Context) (*Editor, error) {
	s.eMu.Lock()
	defer s.eMu.Unlock()
	if s.editor != nil {
		return s.editor, nil
	}
	top, ok, err := s.Loader.Topology()
	if !ok {
		if err != nil {
			return nil, errors.Wrap(err, "topology")
		}
		return nil, ErrTopologyPending
	}
	e := NewEditor(top)
	err = s.Store.ScanNodeOverrides(ctx, func(machineID int64, b []byte) error {
		var attrs NodeAttrs
		if uerr := json.Unmarshal(b, &attrs); uerr != nil {
			log.Error(ctx, errors.Wrap(uerr, "bad node override", j.KV("machine", machineID)))
			return nil
		}
		e.Restore(attrs)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "replaying node overrides")
	}
	s.editor = e
	return e, nil
}

// PersistNode stores a committed node edit so it survives restarts.
func (s *State) PersistNode(ctx context.Context, attrs NodeAttrs) error {
	b, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return s.Store.StoreNodeOverride(ctx, attrs.ID, b)
}
