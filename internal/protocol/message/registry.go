package message

import (
	"sort"
	"sync"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/wire"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RegisterMode selects how Register treats already known declarations.
type RegisterMode int

const (
	// Append rejects any incoming id or name that is already registered.
	Append RegisterMode = iota
	// Replace drops every registered declaration first.
	Replace
)

func (m RegisterMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "append"
}

// Registry indexes declarations by id and by name. Both indexes always hold the
// same declarations.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uint8]*Declaration
	byName map[string]*Declaration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint8]*Declaration),
		byName: make(map[string]*Declaration),
	}
}

// Register adds decls to the registry. Every declaration is validated before either
// index is touched, so a failed call leaves the registry unchanged.
func (r *Registry) Register(decls []*Declaration, mode RegisterMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[uint8]*Declaration, len(decls))
	names := make(map[string]*Declaration, len(decls))
	for _, decl := range decls {
		if decl == nil {
			return errors.Wrap(protocol.ErrRegistration, "nil declaration")
		}
		if prev, ok := ids[decl.id]; ok {
			return errors.Wrapf(protocol.ErrRegistration, "message id %d used by %s and %s", decl.id, prev.name, decl.name)
		}
		if prev, ok := names[decl.name]; ok {
			return errors.Wrapf(protocol.ErrRegistration, "message name %s used by ids %d and %d", decl.name, prev.id, decl.id)
		}
		if mode == Append {
			if prev, ok := r.byID[decl.id]; ok {
				log.Debug().Uint8("id", decl.id).Str("name", decl.name).Str("registered", prev.name).Msg("registry: id conflict")
				return errors.Wrapf(protocol.ErrRegistration, "message with id %d already registered with name %s", decl.id, prev.name)
			}
			if prev, ok := r.byName[decl.name]; ok {
				log.Debug().Uint8("id", decl.id).Str("name", decl.name).Uint8("registered", prev.id).Msg("registry: name conflict")
				return errors.Wrapf(protocol.ErrRegistration, "message with name %s already registered with id %d", decl.name, prev.id)
			}
		}
		ids[decl.id] = decl
		names[decl.name] = decl
	}

	if mode == Replace {
		r.byID = ids
		r.byName = names
	} else {
		for id, decl := range ids {
			r.byID[id] = decl
		}
		for name, decl := range names {
			r.byName[name] = decl
		}
	}
	log.Debug().Int("count", len(decls)).Int("total", len(r.byID)).Str("mode", mode.String()).Msg("registry: registered declarations")
	return nil
}

// LookupID returns the declaration registered under id.
func (r *Registry) LookupID(id uint8) (*Declaration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(protocol.ErrNotFound, "id %d", id)
	}
	return decl, nil
}

// LookupName returns the declaration registered under name.
func (r *Registry) LookupName(name string) (*Declaration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(protocol.ErrNotFound, "name %q", name)
	}
	return decl, nil
}

// Declarations returns every registered declaration ordered by id.
func (r *Registry) Declarations() []*Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Declaration, 0, len(r.byID))
	for _, decl := range r.byID {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Decode parses one complete frame. The buffer must be consumed exactly.
func (r *Registry) Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, protocol.ErrEmptyBuffer
	}
	cur := wire.NewCursor(data)
	id, err := cur.ReadByte()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	decl, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, protocol.UnknownMessageIDError{ID: id}
	}

	frame, err := decl.decodePayload(cur)
	if err != nil {
		return nil, err
	}
	if !cur.EOF() {
		return nil, protocol.TrailingDataError{ID: id, Remaining: cur.Remaining()}
	}
	return frame, nil
}
