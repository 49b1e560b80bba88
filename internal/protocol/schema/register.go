package schema

import (
	_ "embed"

	"github.com/danmuck/wirectl/internal/document"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/pkg/errors"
)

//go:embed default.yaml
var defaultSchema []byte

// DefaultSchema returns a copy of the bundled schema document.
func DefaultSchema() []byte {
	return append([]byte(nil), defaultSchema...)
}

// LoadYAML parses and loads a YAML schema document.
func LoadYAML(data []byte) ([]*message.Declaration, error) {
	doc, err := document.ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return Load(doc)
}

// LoadFile loads the YAML schema stored at path.
func LoadFile(path string) ([]*message.Declaration, error) {
	doc, err := document.ReadYAMLFile(path)
	if err != nil {
		return nil, err
	}
	decls, err := Load(doc)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return decls, nil
}

// RegisterSource loads a YAML schema and registers its declarations.
func RegisterSource(reg *message.Registry, data []byte, mode message.RegisterMode) error {
	decls, err := LoadYAML(data)
	if err != nil {
		return err
	}
	return reg.Register(decls, mode)
}

// RegisterFile loads the schema at path and registers its declarations.
func RegisterFile(reg *message.Registry, path string, mode message.RegisterMode) error {
	decls, err := LoadFile(path)
	if err != nil {
		return err
	}
	if err := reg.Register(decls, mode); err != nil {
		return errors.WithMessage(err, path)
	}
	return nil
}

// RegisterDefault registers the bundled schema.
func RegisterDefault(reg *message.Registry, mode message.RegisterMode) error {
	return errors.WithMessage(RegisterSource(reg, defaultSchema, mode), "default schema")
}
