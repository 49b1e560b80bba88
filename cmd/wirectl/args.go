package main

import (
	"strings"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// parseArgs turns command line literals into frame arguments. Each literal is a
// YAML scalar or flow sequence, so arrays are written as "[1, 2, 3]". Named
// declarations take key=value pairs.
func parseArgs(decl *message.Declaration, raw []string) (message.Args, error) {
	switch decl.Kind() {
	case message.KindNone:
		if len(raw) > 0 {
			return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s takes no arguments", decl.Name())
		}
		return message.NoArgs{}, nil
	case message.KindNamed:
		args := make(message.NamedArgs, len(raw))
		for _, pair := range raw {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s expects key=value, got %q", decl.Name(), pair)
			}
			if _, dup := args[key]; dup {
				return nil, errors.Wrapf(protocol.ErrShapeMismatch, "%s: argument %s given twice", decl.Name(), key)
			}
			v, err := parseLiteral(value)
			if err != nil {
				return nil, err
			}
			args[key] = v
		}
		return args, nil
	default:
		args := make(message.PositionalArgs, len(raw))
		for i, literal := range raw {
			v, err := parseLiteral(literal)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return args, nil
	}
}

func parseLiteral(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, errors.Wrapf(protocol.ErrEncoding, "invalid literal %q: %v", s, err)
	}
	if v == nil {
		return s, nil
	}
	return v, nil
}
