package message

import (
	"fmt"
	"strings"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/wire"
	"github.com/pkg/errors"
)

// Kind is the parameter shape of a declaration or the structure of frame arguments.
type Kind int

const (
	KindNone Kind = iota
	KindPositional
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPositional:
		return "positional"
	case KindNamed:
		return "named"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Params is the parameter shape of a declaration.
// Implementations are NoParams, PositionalParams and NamedParams.
type Params interface {
	Kind() Kind
	params()
}

// NoParams declares a message without parameters.
type NoParams struct{}

// PositionalParams declares parameters identified by position.
type PositionalParams []wire.Type

// NamedParams declares parameters identified by name. Slice order is wire order.
type NamedParams []NamedParam

type NamedParam struct {
	Name string
	Type wire.Type
}

func (NoParams) Kind() Kind         { return KindNone }
func (PositionalParams) Kind() Kind { return KindPositional }
func (NamedParams) Kind() Kind      { return KindNamed }

func (NoParams) params()         {}
func (PositionalParams) params() {}
func (NamedParams) params()      {}

// Lookup returns the type declared for name.
func (p NamedParams) Lookup(name string) (wire.Type, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Type, true
		}
	}
	return nil, false
}

// Declaration is an immutable schema entry: numeric id, unique name and parameter shape.
type Declaration struct {
	id     uint8
	name   string
	params Params
}

// NewDeclaration validates and builds a declaration. Parameter slices are copied.
func NewDeclaration(id uint8, name string, params Params) (*Declaration, error) {
	if id == 0 {
		return nil, errors.Wrapf(protocol.ErrSchema, "message %q: id must be non-zero", name)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.Wrapf(protocol.ErrSchema, "message %d: name is required", id)
	}
	switch p := params.(type) {
	case nil:
		params = NoParams{}
	case NoParams:
	case PositionalParams:
		for i, typ := range p {
			if err := wire.Check(typ); err != nil {
				return nil, errors.WithMessagef(err, "message %q param %d", name, i)
			}
		}
		params = append(PositionalParams(nil), p...)
	case NamedParams:
		seen := make(map[string]struct{}, len(p))
		for _, param := range p {
			if param.Name == "" {
				return nil, errors.Wrapf(protocol.ErrSchema, "message %q: named param without a name", name)
			}
			if err := wire.Check(param.Type); err != nil {
				return nil, errors.WithMessagef(err, "message %q param %s", name, param.Name)
			}
			if _, dup := seen[param.Name]; dup {
				return nil, errors.Wrapf(protocol.ErrSchema, "message %q: duplicate param %q", name, param.Name)
			}
			seen[param.Name] = struct{}{}
		}
		params = append(NamedParams(nil), p...)
	default:
		return nil, errors.Wrapf(protocol.ErrSchema, "message %q: unexpected params %T", name, params)
	}
	return &Declaration{id: id, name: name, params: params}, nil
}

func (d *Declaration) ID() uint8      { return d.id }
func (d *Declaration) Name() string   { return d.name }
func (d *Declaration) Params() Params { return d.params }
func (d *Declaration) Kind() Kind     { return d.params.Kind() }

// Size returns the fixed encoded frame size, id byte included.
func (d *Declaration) Size() int {
	size := 1
	switch p := d.params.(type) {
	case PositionalParams:
		for _, typ := range p {
			size += wire.Size(typ)
		}
	case NamedParams:
		for _, param := range p {
			size += wire.Size(param.Type)
		}
	}
	return size
}

func (d *Declaration) String() string {
	var params string
	switch p := d.params.(type) {
	case PositionalParams:
		parts := make([]string, len(p))
		for i, typ := range p {
			parts[i] = typ.String()
		}
		params = "(" + strings.Join(parts, ", ") + ")"
	case NamedParams:
		parts := make([]string, len(p))
		for i, param := range p {
			parts[i] = param.Name + ": " + param.Type.String()
		}
		params = " {" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%s#%d%s", d.name, d.id, params)
}

// New builds a frame for a declaration without parameters.
func (d *Declaration) New() (*Frame, error) {
	return NewFrame(d, NoArgs{})
}

// NewPositional builds a frame from positional arguments.
func (d *Declaration) NewPositional(args ...any) (*Frame, error) {
	return NewFrame(d, PositionalArgs(args))
}

// NewNamed builds a frame from named arguments.
func (d *Declaration) NewNamed(args map[string]any) (*Frame, error) {
	return NewFrame(d, NamedArgs(args))
}

// decodePayload reads every declared parameter in declaration order.
func (d *Declaration) decodePayload(cur *wire.Cursor) (*Frame, error) {
	switch p := d.params.(type) {
	case NoParams:
		return &Frame{decl: d, args: NoArgs{}}, nil
	case PositionalParams:
		args := make(PositionalArgs, len(p))
		for i, typ := range p {
			v, err := cur.Read(typ)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s param %d", d.name, i)
			}
			args[i] = v
		}
		return &Frame{decl: d, args: args}, nil
	case NamedParams:
		args := make(NamedArgs, len(p))
		for _, param := range p {
			v, err := cur.Read(param.Type)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s param %s", d.name, param.Name)
			}
			args[param.Name] = v
		}
		return &Frame{decl: d, args: args}, nil
	default:
		return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: unexpected params %T", d.name, d.params)
	}
}
