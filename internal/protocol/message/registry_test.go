package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/wire"
	"github.com/danmuck/wirectl/internal/testutil/testlog"
	"github.com/maxatome/go-testdeep/td"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func pingPong(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register([]*Declaration{
		mustDecl(t, 10, "Ping", NoParams{}),
		mustDecl(t, 11, "Pong", PositionalParams{wire.U8}),
	}, Append))
	return r
}

func TestRegistryLookup(t *testing.T) {
	testlog.Start(t)
	r := pingPong(t)

	ping, err := r.LookupName("Ping")
	require.NoError(t, err)
	require.Equal(t, uint8(10), ping.ID())
	pong, err := r.LookupID(11)
	require.NoError(t, err)
	require.Equal(t, "Pong", pong.Name())

	_, err = r.LookupName("Missing")
	require.ErrorIs(t, err, protocol.ErrNotFound)
	_, err = r.LookupID(99)
	require.ErrorIs(t, err, protocol.ErrNotFound)
}

func TestRegistryAppendConflictIsAtomic(t *testing.T) {
	testlog.Start(t)
	r := pingPong(t)

	err := r.Register([]*Declaration{
		mustDecl(t, 12, "Fresh", NoParams{}),
		mustDecl(t, 10, "Other", NoParams{}),
	}, Append)
	require.ErrorIs(t, err, protocol.ErrRegistration)
	_, err = r.LookupName("Fresh")
	require.ErrorIs(t, err, protocol.ErrNotFound)

	err = r.Register([]*Declaration{mustDecl(t, 13, "Ping", NoParams{})}, Append)
	require.ErrorIs(t, err, protocol.ErrRegistration)
	_, err = r.LookupID(13)
	require.ErrorIs(t, err, protocol.ErrNotFound)
	require.Equal(t, 2, r.Len())
}

func TestRegistryRejectsDuplicatesWithinBatch(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	err := r.Register([]*Declaration{
		mustDecl(t, 1, "A", NoParams{}),
		mustDecl(t, 1, "B", NoParams{}),
	}, Replace)
	require.ErrorIs(t, err, protocol.ErrRegistration)
	err = r.Register([]*Declaration{nil}, Append)
	require.ErrorIs(t, err, protocol.ErrRegistration)
	require.Zero(t, r.Len())
}

func TestRegistryReplace(t *testing.T) {
	testlog.Start(t)
	r := pingPong(t)
	require.NoError(t, r.Register([]*Declaration{mustDecl(t, 10, "Hello", NoParams{})}, Replace))

	require.Equal(t, 1, r.Len())
	_, err := r.LookupName("Ping")
	require.ErrorIs(t, err, protocol.ErrNotFound)
	decl, err := r.LookupID(10)
	require.NoError(t, err)
	require.Equal(t, "Hello", decl.Name())
}

func TestRegistryDeclarationsSorted(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	require.NoError(t, r.Register([]*Declaration{
		mustDecl(t, 30, "C", nil),
		mustDecl(t, 5, "A", nil),
		mustDecl(t, 17, "B", nil),
	}, Append))
	var names []string
	for _, decl := range r.Declarations() {
		names = append(names, decl.Name())
	}
	require.Equal(t, []string{"A", "B", "C"}, names)
}

func TestDecodePingPong(t *testing.T) {
	testlog.Start(t)
	r := pingPong(t)
	pong, err := r.LookupName("Pong")
	require.NoError(t, err)
	want, err := pong.NewPositional(5)
	require.NoError(t, err)

	got, err := r.Decode([]byte{11, 5})
	require.NoError(t, err)
	require.True(t, got.Equal(want), "got %s", got)

	_, err = r.Decode([]byte{11, 5, 0})
	require.ErrorIs(t, err, protocol.ErrTrailingData)
	var trailing protocol.TrailingDataError
	require.True(t, errors.As(err, &trailing))
	require.Equal(t, 1, trailing.Remaining)

	_, err = r.Decode([]byte{99})
	require.ErrorIs(t, err, protocol.ErrUnknownMessageID)
	var unknown protocol.UnknownMessageIDError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, uint8(99), unknown.ID)

	_, err = r.Decode(nil)
	require.ErrorIs(t, err, protocol.ErrEmptyBuffer)

	_, err = r.Decode([]byte{11})
	require.ErrorIs(t, err, protocol.ErrTruncated)
}

func TestRoundTripAllShapes(t *testing.T) {
	testlog.Start(t)
	mode := wire.Choice{Variants: []string{"idle", "run", "stop"}}
	decls := []*Declaration{
		mustDecl(t, 1, "Empty", NoParams{}),
		mustDecl(t, 2, "Prims", PositionalParams{wire.Bool, wire.U8, wire.I8, wire.U16, wire.I16, wire.U32, wire.I32, wire.F32}),
		mustDecl(t, 3, "Arrays", PositionalParams{
			wire.Array{Elem: wire.U16, Len: 3},
			wire.Array{Elem: wire.Array{Elem: wire.I8, Len: 2}, Len: 2},
			wire.Array{Elem: mode, Len: 2},
			wire.Array{Elem: wire.F32, Len: 0},
		}),
		mustDecl(t, 4, "Named", NamedParams{{"mode", mode}, {"x", wire.F32}, {"flags", wire.Array{Elem: wire.Bool, Len: 2}}}),
	}
	r := NewRegistry()
	require.NoError(t, r.Register(decls, Append))

	frames := []*Frame{}
	add := func(f *Frame, err error) {
		require.NoError(t, err)
		frames = append(frames, f)
	}
	add(decls[0].New())
	add(decls[1].NewPositional(true, 255, -128, 65535, -32768, uint32(4294967295), -2147483648, float32(3.5)))
	add(decls[2].NewPositional([]int{1, 2, 3}, [][]int{{-1, 1}, {2, -2}}, []string{"stop", "idle"}, []float32{}))
	add(decls[3].NewNamed(map[string]any{"x": -0.25, "flags": []bool{true, false}, "mode": "run"}))

	for _, f := range frames {
		b, err := f.Encode()
		require.NoError(t, err, f.String())
		require.Len(t, b, f.Declaration().Size())

		got, err := r.Decode(b)
		require.NoError(t, err, f.String())
		require.True(t, got.Equal(f), "got %s want %s", got, f)
		td.Cmp(t, got.Values(), f.Values())

		_, err = r.Decode(append(b, 0))
		require.ErrorIs(t, err, protocol.ErrTrailingData)
	}
}

func TestDecodeChoiceOutOfBounds(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	require.NoError(t, r.Register([]*Declaration{
		mustDecl(t, 9, "Mode", PositionalParams{wire.Choice{Variants: []string{"a", "b", "c"}}}),
	}, Append))
	_, err := r.Decode([]byte{9, 3})
	require.ErrorIs(t, err, protocol.ErrInvalidChoice)
	_, err = r.Decode([]byte{9, 2})
	require.NoError(t, err)
}

func TestRegistryLogsAtDebugOnly(t *testing.T) {
	testlog.Start(t)
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)
	r := pingPong(t)
	require.Error(t, r.Register([]*Declaration{mustDecl(t, 10, "Again", NoParams{})}, Append))
	require.Empty(t, buf.String())

	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	pingPong(t)
	require.Contains(t, buf.String(), "registry: registered declarations")
}
