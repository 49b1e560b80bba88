package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/wirectl/internal/config"
	"github.com/danmuck/wirectl/internal/gateway"
	"github.com/danmuck/wirectl/internal/observability"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/danmuck/wirectl/internal/protocol/schema"
	"github.com/danmuck/wirectl/internal/protocol/stream"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	idColor   = color.New(color.FgYellow)
	nameColor = color.New(color.FgCyan, color.Bold)
	hexColor  = color.New(color.FgGreen)
)

// loadDeclarations collects the bundled schema (unless disabled) and each
// configured schema file into one batch. With replace_default, file entries
// drop bundled entries sharing their id or name; otherwise any overlap is left
// for the registry to reject.
func loadDeclarations(cfg config.Config) ([]*message.Declaration, error) {
	var base []*message.Declaration
	if cfg.LoadDefault {
		decls, err := schema.LoadYAML(schema.DefaultSchema())
		if err != nil {
			return nil, errors.WithMessage(err, "default schema")
		}
		base = decls
	}
	var extra []*message.Declaration
	for _, path := range cfg.Schemas {
		decls, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		extra = append(extra, decls...)
	}
	if !cfg.ReplaceDefault {
		return append(base, extra...), nil
	}

	ids := make(map[uint8]struct{}, len(extra))
	names := make(map[string]struct{}, len(extra))
	for _, decl := range extra {
		ids[decl.ID()] = struct{}{}
		names[decl.Name()] = struct{}{}
	}
	merged := make([]*message.Declaration, 0, len(base)+len(extra))
	for _, decl := range base {
		_, idTaken := ids[decl.ID()]
		_, nameTaken := names[decl.Name()]
		if !idTaken && !nameTaken {
			merged = append(merged, decl)
		}
	}
	return append(merged, extra...), nil
}

func buildRegistry(cfg config.Config) (*message.Registry, error) {
	decls, err := loadDeclarations(cfg)
	if err != nil {
		return nil, err
	}
	reg := message.NewRegistry()
	if err := reg.Register(decls, message.Append); err != nil {
		return nil, err
	}
	return reg, nil
}

func (c *cli) list(reg *message.Registry) error {
	for _, decl := range reg.Declarations() {
		c.printDeclaration(decl)
	}
	return nil
}

func (c *cli) printDeclaration(decl *message.Declaration) {
	info := gateway.Describe(decl)
	params := make([]string, len(info.Params))
	for i, p := range info.Params {
		if p.Name != "" {
			params[i] = p.Name + ": " + p.Type
		} else {
			params[i] = p.Type
		}
	}
	fmt.Fprintf(c.stdout, "%s %s %s (%d bytes) %s\n",
		idColor.Sprintf("%3d", info.ID),
		nameColor.Sprint(info.Name),
		info.Kind,
		info.Size,
		strings.Join(params, ", "),
	)
}

func (c *cli) describe(reg *message.Registry, args []string) error {
	if len(args) != 1 {
		return errors.New("describe expects one message name or id")
	}
	decl, err := gateway.Lookup(reg, args[0])
	if err != nil {
		return err
	}
	c.printDeclaration(decl)
	return nil
}

func (c *cli) encode(reg *message.Registry, args []string) error {
	if len(args) == 0 {
		return errors.New("encode expects a message name or id")
	}
	decl, err := gateway.Lookup(reg, args[0])
	if err != nil {
		return err
	}
	frameArgs, err := parseArgs(decl, args[1:])
	if err != nil {
		return err
	}
	frame, err := message.NewFrame(decl, frameArgs)
	if err != nil {
		return err
	}
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, hexColor.Sprint(hex.EncodeToString(data)))
	return nil
}

func (c *cli) decode(reg *message.Registry, args []string) error {
	if len(args) == 0 {
		return errors.New("decode expects hex data or -")
	}
	if len(args) == 1 && args[0] == "-" {
		return c.decodeStream(reg)
	}
	data, err := gateway.ParseHex(strings.Join(args, ""))
	if err != nil {
		return err
	}
	frame, err := reg.Decode(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, nameColor.Sprint(frame.String()))
	return nil
}

func (c *cli) decodeStream(reg *message.Registry) error {
	for {
		frame, err := stream.ReadFrame(c.stdin, reg, stream.DefaultLimits())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, nameColor.Sprint(frame.String()))
	}
}

// serve runs the gateway until SIGINT or SIGTERM. SIGHUP reloads every schema
// source and replaces the registry content in one step.
func (c *cli) serve(cfg config.Config, reg *message.Registry) error {
	observability.InitLogger("wirectl", cfg.Node)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := gateway.Appear(reg, gateway.Options{
		Node:        cfg.Node,
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CorsOrigins,
		Metrics:     cfg.Metrics,
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Serve(gCtx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-hup:
				reloadSchemas(cfg, reg)
			}
		}
	})
	return g.Wait()
}

// reloadSchemas swaps the whole registry content, or keeps it on failure.
func reloadSchemas(cfg config.Config, reg *message.Registry) {
	decls, err := loadDeclarations(cfg)
	if err == nil {
		err = reg.Register(decls, message.Replace)
	}
	if err != nil {
		log.Error().Err(err).Strs("schemas", cfg.Schemas).Msg("schema reload failed")
		return
	}
	log.Info().Int("messages", reg.Len()).Msg("schemas reloaded")
	observability.SetRegisteredMessages(cfg.Node, reg.Len())
}
