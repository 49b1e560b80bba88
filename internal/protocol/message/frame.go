package message

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/wire"
	"github.com/pkg/errors"
)

// Args holds the concrete values of a frame.
// Implementations are NoArgs, PositionalArgs and NamedArgs.
type Args interface {
	Kind() Kind
	args()
}

type NoArgs struct{}

type PositionalArgs []any

// NamedArgs order is irrelevant; frames encode in declaration order.
type NamedArgs map[string]any

func (NoArgs) Kind() Kind         { return KindNone }
func (PositionalArgs) Kind() Kind { return KindPositional }
func (NamedArgs) Kind() Kind      { return KindNamed }

func (NoArgs) args()         {}
func (PositionalArgs) args() {}
func (NamedArgs) args()      {}

// Frame is an instance of a declaration with bound argument values.
type Frame struct {
	decl *Declaration
	args Args
}

// NewFrame checks args against the declaration shape. Value types are only checked
// when the frame is encoded.
func NewFrame(decl *Declaration, args Args) (*Frame, error) {
	if decl == nil {
		return nil, errors.Wrap(protocol.ErrShapeMismatch, "nil declaration")
	}
	if args == nil {
		args = NoArgs{}
	}
	if args.Kind() != decl.Kind() {
		return nil, errors.Wrapf(protocol.ErrShapeMismatch,
			"%s: %s arguments for %s declaration", decl.name, args.Kind(), decl.Kind())
	}
	switch a := args.(type) {
	case PositionalArgs:
		params := decl.params.(PositionalParams)
		if len(a) != len(params) {
			return nil, errors.Wrapf(protocol.ErrShapeMismatch,
				"%s: got %d argument(s), want %d", decl.name, len(a), len(params))
		}
	case NamedArgs:
		params := decl.params.(NamedParams)
		if len(a) != len(params) {
			return nil, errors.Wrapf(protocol.ErrShapeMismatch,
				"%s: argument names %v, want %v", decl.name, sortedKeys(a), paramNames(params))
		}
		for _, param := range params {
			if _, ok := a[param.Name]; !ok {
				return nil, errors.Wrapf(protocol.ErrShapeMismatch,
					"%s: argument names %v, want %v", decl.name, sortedKeys(a), paramNames(params))
			}
		}
	}
	return &Frame{decl: decl, args: args}, nil
}

func (f *Frame) Declaration() *Declaration { return f.decl }
func (f *Frame) Args() Args                { return f.args }

// Encode returns the id byte followed by every argument in declaration order.
func (f *Frame) Encode() ([]byte, error) {
	buf := make([]byte, 1, f.decl.Size())
	buf[0] = f.decl.id
	var err error
	switch params := f.decl.params.(type) {
	case NoParams:
	case PositionalParams:
		args, ok := f.args.(PositionalArgs)
		if !ok || len(args) != len(params) {
			return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: positional arguments do not pair with params", f.decl.name)
		}
		for i, typ := range params {
			if buf, err = wire.Write(buf, typ, args[i]); err != nil {
				return nil, errors.WithMessagef(err, "%s param %d", f.decl.name, i)
			}
		}
	case NamedParams:
		args, ok := f.args.(NamedArgs)
		if !ok {
			return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: named arguments expected", f.decl.name)
		}
		for _, param := range params {
			v, ok := args[param.Name]
			if !ok {
				return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: missing argument %s", f.decl.name, param.Name)
			}
			if buf, err = wire.Write(buf, param.Type, v); err != nil {
				return nil, errors.WithMessagef(err, "%s param %s", f.decl.name, param.Name)
			}
		}
	default:
		return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: unexpected params %T", f.decl.name, f.decl.params)
	}
	return buf, nil
}

func (f *Frame) String() string {
	var rendered string
	switch a := f.args.(type) {
	case PositionalArgs:
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = formatValue(v)
		}
		rendered = strings.Join(parts, ", ")
	case NamedArgs:
		params, _ := f.decl.params.(NamedParams)
		parts := make([]string, 0, len(a))
		for _, param := range params {
			parts = append(parts, param.Name+"="+formatValue(a[param.Name]))
		}
		rendered = strings.Join(parts, ", ")
	default:
		rendered = "-"
	}
	return fmt.Sprintf("<Frame '%s' %s>", f.decl.name, rendered)
}

// Equal reports whether both frames share a declaration and carry the same values
// once normalized to their wire types.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.decl.id != other.decl.id || f.decl.name != other.decl.name {
		return false
	}
	a, errA := f.normalizedArgs()
	b, errB := other.normalizedArgs()
	if errA != nil || errB != nil {
		return reflect.DeepEqual(f.args, other.args)
	}
	return valuesEqual(a, b)
}

// valuesEqual is reflect.DeepEqual except that f32 values compare by bit
// pattern, so a decoded NaN equals the frame it was encoded from.
func valuesEqual(a, b any) bool {
	switch a := a.(type) {
	case float32:
		bf, ok := b.(float32)
		return ok && math.Float32bits(a) == math.Float32bits(bf)
	case PositionalArgs:
		bs, ok := b.(PositionalArgs)
		return ok && sliceEqual(a, bs)
	case []any:
		bs, ok := b.([]any)
		return ok && sliceEqual(a, bs)
	case NamedArgs:
		bm, ok := b.(NamedArgs)
		return ok && mapEqual(a, bm)
	case map[string]any:
		bm, ok := b.(map[string]any)
		return ok && mapEqual(a, bm)
	default:
		return reflect.DeepEqual(a, b)
	}
}

func sliceEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mapEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !valuesEqual(v, w) {
			return false
		}
	}
	return true
}

// Values returns a plain representation of the frame for JSON or msgpack output.
func (f *Frame) Values() map[string]any {
	out := map[string]any{
		"id":   f.decl.id,
		"name": f.decl.name,
	}
	args, err := f.normalizedArgs()
	if err != nil {
		args = f.args
	}
	switch a := args.(type) {
	case PositionalArgs:
		out["args"] = []any(a)
	case NamedArgs:
		out["args"] = map[string]any(a)
	default:
		out["args"] = nil
	}
	return out
}

func (f *Frame) normalizedArgs() (Args, error) {
	switch params := f.decl.params.(type) {
	case PositionalParams:
		args := f.args.(PositionalArgs)
		out := make(PositionalArgs, len(args))
		for i, typ := range params {
			v, err := wire.Normalize(typ, args[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case NamedParams:
		args := f.args.(NamedArgs)
		out := make(NamedArgs, len(args))
		for _, param := range params {
			v, err := wire.Normalize(param.Type, args[param.Name])
			if err != nil {
				return nil, err
			}
			out[param.Name] = v
		}
		return out, nil
	default:
		return NoArgs{}, nil
	}
}

func formatValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = formatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

func paramNames(params NamedParams) []string {
	names := make([]string, len(params))
	for i, param := range params {
		names[i] = param.Name
	}
	return names
}

func sortedKeys(args NamedArgs) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
