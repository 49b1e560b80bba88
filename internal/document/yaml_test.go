package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/wirectl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestParseYAMLPreservesOrderAndKinds(t *testing.T) {
	testlog.Start(t)
	src := `
20:
  Zulu: null
  Alpha: [u8, "[u16; 2]"]
10:
  Named: {x: f32, mode: [on, off]}
`
	doc, err := ParseYAML([]byte(src))
	require.NoError(t, err)

	root, ok := doc.(Map)
	require.True(t, ok, "got %T", doc)
	require.Len(t, root, 2)
	require.Equal(t, Int(20), root[0].Key)
	require.Equal(t, Int(10), root[1].Key)

	group := root[0].Value.(Map)
	require.Equal(t, String("Zulu"), group[0].Key)
	require.Equal(t, Null{}, group[0].Value)
	require.Equal(t, String("Alpha"), group[1].Key)
	require.Equal(t, List{String("u8"), String("[u16; 2]")}, group[1].Value)

	named, ok := root[1].Value.(Map).Get(String("Named"))
	require.True(t, ok)
	mode, ok := named.(Map).Get(String("mode"))
	require.True(t, ok)
	require.Equal(t, List{String("on"), String("off")}, mode)
}

func TestParseYAMLScalarsAndEmpty(t *testing.T) {
	testlog.Start(t)
	doc, err := ParseYAML([]byte(""))
	require.NoError(t, err)
	require.Equal(t, Null{}, doc)

	doc, err = ParseYAML([]byte("[1.5, true, 0x10, 99999999999999999999]"))
	require.NoError(t, err)
	list := doc.(List)
	require.Equal(t, Scalar{Tag: "!!float", Value: "1.5"}, list[0])
	require.Equal(t, Scalar{Tag: "!!bool", Value: "true"}, list[1])
	require.Equal(t, Int(16), list[2])
	require.IsType(t, Scalar{}, list[3])
}

func TestParseYAMLAliases(t *testing.T) {
	testlog.Start(t)
	doc, err := ParseYAML([]byte("a: &pos [f32, f32]\nb: *pos\n"))
	require.NoError(t, err)
	b, ok := doc.(Map).Get(String("b"))
	require.True(t, ok)
	require.Equal(t, List{String("f32"), String("f32")}, b)
}

func TestParseYAMLInvalid(t *testing.T) {
	testlog.Start(t)
	_, err := ParseYAML([]byte("a: [unclosed"))
	require.Error(t, err)
}

func TestReadYAMLFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("1:\n  Ping: null\n"), 0o644))
	doc, err := ReadYAMLFile(path)
	require.NoError(t, err)
	require.Equal(t, "{1: {\"Ping\": null}}", doc.String())

	_, err = ReadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMapGetIgnoresUncomparableKeys(t *testing.T) {
	testlog.Start(t)
	m := Map{{Key: List{Int(1)}, Value: Null{}}, {Key: Int(1), Value: String("x")}}
	v, ok := m.Get(Int(1))
	require.True(t, ok)
	require.Equal(t, String("x"), v)
}
