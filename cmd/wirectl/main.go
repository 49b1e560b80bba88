package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/wirectl/internal/config"
	"github.com/danmuck/wirectl/internal/logging"
	"github.com/fatih/color"
)

const usage = `usage: wirectl [flags] <command> [args]

commands:
  list                      list registered messages
  describe <name|id>        show one message declaration
  encode <name|id> [args]   encode a frame; positional literals or key=value pairs
  decode <hex>|-            decode a frame, or raw frames read from stdin
  serve                     run the HTTP gateway
  init [-force] [path]      write a wirectl.toml template

flags:
`

// schemaFlags collects repeated -schema values.
type schemaFlags []string

func (s *schemaFlags) String() string { return strings.Join(*s, ",") }

func (s *schemaFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	schemas    schemaFlags
	noDefault  bool
}

func main() {
	c := &cli{stdin: os.Stdin, stdout: color.Output, stderr: color.Error}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(argv []string) int {
	logging.ConfigureRuntime()
	fs := flag.NewFlagSet("wirectl", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.configPath, "config", "", "path to wirectl.toml (default: ./wirectl.toml when present)")
	fs.Var(&c.schemas, "schema", "extra YAML schema file, repeatable")
	fs.BoolVar(&c.noDefault, "no-default", false, "do not register the bundled schema")
	fs.Usage = func() {
		fmt.Fprint(c.stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, args := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "init":
		err = c.initConfig(args)
	case "list", "describe", "encode", "decode", "serve":
		err = c.withRegistry(cmd, args)
	default:
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", color.RedString("wirectl:"), err)
		return 1
	}
	return 0
}

// loadConfig resolves the config file, then applies command line overrides.
func (c *cli) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Schemas = append(cfg.Schemas, c.schemas...)
	if c.noDefault {
		cfg.LoadDefault = false
		cfg.ReplaceDefault = false
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (c *cli) withRegistry(cmd string, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	switch cmd {
	case "list":
		return c.list(reg)
	case "describe":
		return c.describe(reg, args)
	case "encode":
		return c.encode(reg, args)
	case "decode":
		return c.decode(reg, args)
	default:
		return c.serve(cfg, reg)
	}
}

func (c *cli) initConfig(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := config.DefaultPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := config.WriteTemplate(path, *force); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", path)
	return nil
}
