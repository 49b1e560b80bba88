package schema

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/wirectl/internal/document"
	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/rs/zerolog/log"
)

// Load turns a parsed document into declarations ordered by group then by position
// within the group. Message ids start at the group id and increase by one per message.
func Load(doc document.Node) ([]*message.Declaration, error) {
	root, ok := doc.(document.Map)
	if !ok {
		return nil, protocol.SchemaError{Reason: "top level element must be a mapping"}
	}

	decls := make([]*message.Declaration, 0)
	ids := make(map[int]string)
	names := make(map[string]int)
	for _, group := range root {
		groupID, ok := group.Key.(document.Int)
		if !ok {
			return nil, protocol.SchemaError{
				Path:   group.Key.String(),
				Reason: "group id must be an integer",
			}
		}
		if groupID <= 0 || groupID > math.MaxUint8 {
			return nil, protocol.SchemaError{
				Path:   group.Key.String(),
				Reason: "group id must be a non-zero 8-bit value",
			}
		}
		items, ok := group.Value.(document.Map)
		if !ok {
			return nil, protocol.SchemaError{
				Path:   group.Key.String(),
				Reason: "group value must be a mapping",
			}
		}

		id := int(groupID)
		for _, item := range items {
			name, ok := item.Key.(document.String)
			if !ok {
				return nil, protocol.SchemaError{
					Path:   fmt.Sprintf("%d.%s", groupID, item.Key),
					Reason: "message name must be a string",
				}
			}
			path := fmt.Sprintf("%d.%s", groupID, string(name))
			if id > math.MaxUint8 {
				return nil, protocol.SchemaError{
					Path:   path,
					Reason: fmt.Sprintf("message id %d does not fit 8 bits", id),
				}
			}
			if prev, dup := ids[id]; dup {
				return nil, protocol.SchemaError{
					Path:   path,
					Reason: fmt.Sprintf("duplicate message id %d, used by %s and %s", id, prev, string(name)),
				}
			}
			if _, dup := names[string(name)]; dup {
				return nil, protocol.SchemaError{
					Path:   path,
					Reason: fmt.Sprintf("duplicate message name %s", string(name)),
				}
			}

			params, err := parseParams(item.Value)
			if err != nil {
				return nil, withPath(err, path)
			}
			decl, err := message.NewDeclaration(uint8(id), string(name), params)
			if err != nil {
				return nil, protocol.SchemaError{Path: path, Reason: err.Error()}
			}
			log.Debug().Uint8("id", decl.ID()).Str("name", decl.Name()).Str("kind", decl.Kind().String()).Msg("schema: declared message")

			decls = append(decls, decl)
			ids[id] = string(name)
			names[string(name)] = id
			id++
		}
	}
	log.Debug().Int("groups", len(root)).Int("messages", len(decls)).Msg("schema: loaded")
	return decls, nil
}

func parseParams(node document.Node) (message.Params, error) {
	switch n := node.(type) {
	case document.Null:
		return message.NoParams{}, nil
	case document.List:
		params := make(message.PositionalParams, len(n))
		for i, item := range n {
			typ, err := ParseType(item)
			if err != nil {
				return nil, withPath(err, fmt.Sprintf("[%d]", i))
			}
			params[i] = typ
		}
		return params, nil
	case document.Map:
		params := make(message.NamedParams, 0, len(n))
		seen := make(map[string]struct{}, len(n))
		for _, entry := range n {
			name, ok := entry.Key.(document.String)
			if !ok {
				return nil, protocol.SchemaError{
					Reason: fmt.Sprintf("parameter name must be a string, got %s", entry.Key),
				}
			}
			if _, dup := seen[string(name)]; dup {
				return nil, protocol.SchemaError{
					Reason: fmt.Sprintf("duplicate parameter name %s", string(name)),
				}
			}
			seen[string(name)] = struct{}{}
			typ, err := ParseType(entry.Value)
			if err != nil {
				return nil, withPath(err, string(name))
			}
			params = append(params, message.NamedParam{Name: string(name), Type: typ})
		}
		return params, nil
	default:
		return nil, protocol.SchemaError{Reason: "message declaration must be null, a list or a mapping"}
	}
}

// withPath prefixes the path of a SchemaError, leaving other errors untouched.
func withPath(err error, path string) error {
	var se protocol.SchemaError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Path == "":
		se.Path = path
	case se.Path[0] == '[':
		se.Path = path + se.Path
	default:
		se.Path = path + "." + se.Path
	}
	return se
}
