// Command cfplan builds physical plans from operator trees described in a
// YAML plan file, and optionally runs them against an in-memory store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"

	"github.com/dshills/cfplan/internal/catalog"
	"github.com/dshills/cfplan/internal/config"
	"github.com/dshills/cfplan/internal/engine"
	"github.com/dshills/cfplan/internal/log"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/rel"
	"github.com/dshills/cfplan/internal/sql/runtime"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

type options struct {
	Version bool           `short:"v" long:"version" description:"show version information"`
	Explain explainCommand `command:"explain" description:"build a plan and print it"`
	Run     runCommand     `command:"run" description:"build a plan and run it against the rows of the plan file"`
}

// PlanOptions are shared by every command.
type PlanOptions struct {
	PlanFile   string `short:"f" long:"file" description:"plan file" required:"true"`
	ConfigFile string `short:"c" long:"config" description:"configuration file (.json, .yaml)"`
	LogLevel   string `long:"log-level" description:"log level (debug, info, warn, error)"`

	ctx context.Context
	out io.Writer
}

type explainCommand struct {
	PlanOptions
}

type runCommand struct {
	PlanOptions
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, fe.Message)
			return
		}
		fmt.Fprintln(os.Stderr, "cfplan:", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command, writing its output
// to stdout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options
	for _, po := range []*PlanOptions{&opts.Explain.PlanOptions, &opts.Run.PlanOptions} {
		po.ctx, po.out = ctx, stdout
	}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Version {
			fmt.Fprintf(stdout, "cfplan v%s (commit: %s)\n", version, commit)
			return nil
		}
		if cmd == nil {
			return fmt.Errorf("a command is required: explain or run")
		}
		return cmd.Execute(args)
	}
	_, err := parser.ParseArgs(args)
	return err
}

// session is a plan built from a plan file.
type session struct {
	cfg     *config.Config
	file    *planFile
	catalog *catalog.MemoryCatalog
	result  *rel.Result
	runtime *runtime.Context
}

// setup loads the configuration and the plan file, and builds the plan.
func (o *PlanOptions) setup() (*session, error) {
	cfg := config.DefaultConfig()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(o.ConfigFile); err != nil {
			return nil, err
		}
	} else {
		cfg.ApplyEnv()
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Configure(cfg.Log, os.Stderr)

	pf, err := loadPlanFile(o.PlanFile)
	if err != nil {
		return nil, err
	}
	cat, err := pf.createCatalog()
	if err != nil {
		return nil, err
	}
	root, err := pf.Plan.toNode(cat)
	if err != nil {
		return nil, err
	}

	rc := runtime.NewContext()
	res, err := rel.NewImplementor(rc, cfg, nil, nil).Build(root)
	if err != nil {
		return nil, err
	}
	log.Component("cfplan").Debug("plan built",
		log.String("file", o.PlanFile),
		log.Int("columns", res.Projector.ColumnCount()))
	return &session{cfg: cfg, file: pf, catalog: cat, result: res, runtime: rc}, nil
}

func (c *explainCommand) Execute([]string) error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	for _, line := range s.result.Explain() {
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out, "ROW PROJECTOR "+s.result.Projector.String())
	return nil
}

func (c *runCommand) Execute([]string) error {
	s, err := c.setup()
	if err != nil {
		return err
	}

	store := exec.NewKVStore(engine.NewMemoryEngine(), s.cfg.Tuple)
	if err := s.file.load(c.ctx, s.catalog, store); err != nil {
		return err
	}
	rows, err := s.result.Run(c.ctx, exec.NewContext(store, s.runtime))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	names := make([]string, s.result.Projector.ColumnCount())
	for i, col := range s.result.Projector.Columns() {
		names[i] = col.Name()
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "(%d rows)\n", len(rows))
	return nil
}
