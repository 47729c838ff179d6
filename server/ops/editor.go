package ops

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/linesight/linesight/api"
)

var (
	// ErrUnknownNode is returned for operations on a machine id that isn't
	// part of the loaded topology.
	ErrUnknownNode = errors.New("unknown node", j.C("ERR_96c1f0b2a4e6d817"))
	// ErrNotSelected is returned for edit operations with no active selection.
	ErrNotSelected = errors.New("no node selected", j.C("ERR_30ad52c7e9f14b68"))
	// ErrFlagConflict rejects enabling bypass and not-allowed together.
	ErrFlagConflict = errors.New(`only one of "bypass" or "not allowed" can be enabled`, j.C("ERR_5f8e21d4c07a93b6"))
	// ErrDuplicateStation rejects a save whose station number derives the id
	// of a different existing node.
	ErrDuplicateStation = errors.New("a node with this station number already exists", j.C("ERR_c49b7d1e83f6a250"))
)

// NodeAttrs are the committed, editable attributes of a topology node.
type NodeAttrs struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	StationNumber string  `json:"station_number"`
	Bypass        bool    `json:"bypass"`
	NotAllowed    bool    `json:"not_allowed"`
	InputStations []int64 `json:"input_stations"`
}

// editBuffer holds uncommitted edits, local to the selected node.
type editBuffer struct {
	Name          string
	StationNumber string
	Bypass        bool
	NotAllowed    bool
}

// Editor tracks per-node selection and edit state for the tree view. The
// canonical node set lives in nodes and is never reordered; paint order is
// the separate order slice, last entry topmost. At most one node is in edit
// mode at any instant.
type Editor struct {
	mu       sync.Mutex
	nodes    map[int64]NodeAttrs
	order    []int64
	selected int64
	session  string
	buf      editBuffer
}

// NewEditor seeds an editor from a topology payload. Input order defines
// the initial paint order.
func NewEditor(t api.TopologyPayload) *Editor {
	bypass := make(map[int64]bool, len(t.BypassList))
	for _, id := range t.BypassList {
		bypass[id] = true
	}
	notAllowed := make(map[int64]bool, len(t.NotAllowedList))
	for _, id := range t.NotAllowedList {
		notAllowed[id] = true
	}
	e := &Editor{nodes: make(map[int64]NodeAttrs, len(t.Machines))}
	for _, m := range t.Machines {
		if _, ok := e.nodes[m.MachineID]; ok {
			continue
		}
		e.nodes[m.MachineID] = NodeAttrs{
			ID:            m.MachineID,
			Name:          m.Name,
			StationNumber: m.StationNumber,
			Bypass:        bypass[m.MachineID],
			NotAllowed:    notAllowed[m.MachineID],
			InputStations: m.InputStations,
		}
		e.order = append(e.order, m.MachineID)
	}
	return e
}

// Restore applies previously committed attributes, used when replaying
// persisted edits over a fresh topology fetch.
func (e *Editor) Restore(attrs NodeAttrs) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nodes[attrs.ID]; !ok {
		return
	}
	e.nodes[attrs.ID] = attrs
}

// Snapshot returns the committed nodes in paint order and the id of the
// selected node, if any.
func (e *Editor) Snapshot() ([]NodeAttrs, int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]NodeAttrs, 0, len(e.order))
	for _, id := range e.order {
		ret = append(ret, e.nodes[id])
	}
	return ret, e.selected, e.session != ""
}

// Preview returns the hover summary for a node and raises it to the top of
// the paint order. Hover state is independent of selection.
func (e *Editor) Preview(id int64) (api.NodePreview, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	if !ok {
		return api.NodePreview{}, errors.Wrap(ErrUnknownNode, "", j.KV("node", id))
	}
	e.raise(id)
	return api.NodePreview{
		Name:          n.Name,
		StationNumber: n.StationNumber,
		InputStations: n.InputStations,
	}, nil
}

// BringToFront raises a node to the top of the paint order.
func (e *Editor) BringToFront(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nodes[id]; !ok {
		return errors.Wrap(ErrUnknownNode, "", j.KV("node", id))
	}
	e.raise(id)
	return nil
}

func (e *Editor) raise(id int64) {
	for i, cur := range e.order {
		if cur == id {
			e.order = append(append(e.order[:i:i], e.order[i+1:]...), id)
			return
		}
	}
}

// Select puts a node in edit mode, seeding the buffer from its committed
// values. Selecting while another node is selected discards that node's
// buffer. Returns a session token identifying this edit.
func (e *Editor) Select(id int64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	if !ok {
		return "", errors.Wrap(ErrUnknownNode, "", j.KV("node", id))
	}
	e.selected = id
	e.session = uuid.New().String()
	e.buf = editBuffer{
		Name:          n.Name,
		StationNumber: n.StationNumber,
		Bypass:        n.Bypass,
		NotAllowed:    n.NotAllowed,
	}
	e.raise(id)
	return e.session, nil
}

// Edit applies buffered changes to the selected node. Enabling one of the
// mutually exclusive flags while the other is set in the buffer is rejected
// and leaves the buffer unchanged.
func (e *Editor) Edit(req api.EditRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == "" {
		return ErrNotSelected
	}
	next := e.buf
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.StationNumber != nil {
		next.StationNumber = *req.StationNumber
	}
	if req.Bypass != nil {
		next.Bypass = *req.Bypass
	}
	if req.NotAllowed != nil {
		next.NotAllowed = *req.NotAllowed
	}
	if next.Bypass && next.NotAllowed {
		return ErrFlagConflict
	}
	e.buf = next
	return nil
}

// Cancel discards the edit buffer and deselects. No mutation occurs.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deselect()
}

func (e *Editor) deselect() {
	e.selected = 0
	e.session = ""
	e.buf = editBuffer{}
}

// Save validates the buffer and commits it to the selected node, then
// deselects. Fields left blank in the buffer keep their committed values.
// A rejected save keeps edit mode open and commits nothing.
func (e *Editor) Save() (NodeAttrs, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == "" {
		return NodeAttrs{}, ErrNotSelected
	}
	n := e.nodes[e.selected]

	station := e.buf.StationNumber
	if station == "" {
		station = n.StationNumber
	}
	newID, err := DeriveMachineID(station)
	if err != nil {
		return NodeAttrs{}, err
	}
	if other, ok := e.nodes[newID]; ok && other.ID != n.ID {
		return NodeAttrs{}, errors.Wrap(ErrDuplicateStation, "",
			j.MKV{"station": station, "existing": other.ID})
	}

	name := e.buf.Name
	if name == "" {
		name = n.Name
	}
	committed := NodeAttrs{
		ID:            newID,
		Name:          name,
		StationNumber: station,
		Bypass:        e.buf.Bypass,
		NotAllowed:    e.buf.NotAllowed,
		InputStations: n.InputStations,
	}

	delete(e.nodes, n.ID)
	e.nodes[newID] = committed
	for i, id := range e.order {
		if id == n.ID {
			e.order[i] = newID
			break
		}
	}
	e.deselect()
	return committed, nil
}

// DeriveMachineID maps a station number to its machine id by stripping the
// leading non-numeric prefix, so "M034" derives 34. A station number with
// no digits is a validation error.
func DeriveMachineID(station string) (int64, error) {
	s := strings.TrimLeftFunc(station, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if s == "" {
		return 0, errors.Wrap(ErrBadStation, "", j.KV("station", station))
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrBadStation, "", j.KV("station", station))
	}
	return id, nil
}

// ErrBadStation rejects a station number that no machine id can be derived
// from.
var ErrBadStation = errors.New("station number has no numeric part", j.C("ERR_7d2e94a1b35c08f4"))
