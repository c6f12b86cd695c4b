package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/subcommands"

	"github.com/warp/stock-master/config"
	"github.com/warp/stock-master/demo"
	"github.com/warp/stock-master/inventory"
	"github.com/warp/stock-master/logging"
	"github.com/warp/stock-master/store"
)

// Register the subcommands.
func Register(c *subcommands.Commander, a *app) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&exportCmd{app: a}, "data")
	c.Register(&importCmd{app: a}, "data")
	c.Register(&statsCmd{app: a}, "data")
	c.Register(&clearCmd{app: a}, "data")
	c.Register(&scopesCmd{app: a}, "data")
	c.Register(&seedCmd{app: a}, "demo")
}

// app carries the global flags shared by every subcommand.
type app struct {
	cfg  *config.Config
	user string
	out  io.Writer
}

func newApp(cfg *config.Config, out io.Writer) *app {
	return &app{cfg: cfg, user: "local", out: out}
}

func (a *app) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.user, "user", a.user, "user scope to operate on")
	f.StringVar(&a.cfg.Store, "store", a.cfg.Store, "KV backend: memory, sqlite or redis")
	f.StringVar(&a.cfg.SQLitePath, "db", a.cfg.SQLitePath, "SQLite database path")
	f.StringVar(&a.cfg.RedisAddr, "redis", a.cfg.RedisAddr, "Redis address")
}

// open returns the backend and the user's inventory. The caller closes the backend.
func (a *app) open(ctx context.Context) (store.Backend, *inventory.Inventory, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	kv, err := store.Open(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.Config{Env: a.cfg.Env, Level: a.cfg.LogLevel, Out: os.Stderr})
	inv, err := inventory.Open(ctx, inventory.NewGateway(kv, a.user), inventory.Options{
		UserID:           a.user,
		Logger:           &log,
		SeedDefaults:     a.cfg.SeedDefaults,
		EnforceUniqueSKU: a.cfg.EnforceUniqueSKU,
	})
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	return kv, inv, nil
}

// run opens the scope, calls fn and maps its error to an exit status.
func (a *app) run(ctx context.Context, fn func(inv *inventory.Inventory) error) subcommands.ExitStatus {
	kv, inv, err := a.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer kv.Close()

	if err := fn(inv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if inventory.IsClientError(err) || inventory.IsNotFound(err) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// =============================================================================
// export
// =============================================================================

type exportCmd struct {
	app    *app
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write every namespace of the scope as one JSON document" }
func (*exportCmd) Usage() string {
	return `stockctl [-user <id>] export [-o <file>]

  Writes the scope's bundle to a file, or stdout when -o is omitted.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file (defaults to stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(inv *inventory.Inventory) error {
		bundle, err := inv.Export(ctx)
		if err != nil {
			return err
		}
		var w io.Writer = c.app.out
		if c.output != "" {
			file, err := os.Create(c.output)
			if err != nil {
				return err
			}
			defer file.Close()
			w = file
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	})
}

// =============================================================================
// import
// =============================================================================

type importCmd struct {
	app   *app
	input string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace namespaces of the scope from an exported bundle" }
func (*importCmd) Usage() string {
	return `stockctl [-user <id>] import -i <file>

  Namespaces present in the file overwrite the stored ones. A malformed
  namespace aborts the import before anything is written.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "", "bundle file to import")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input == "" {
		fmt.Fprintln(os.Stderr, "Error: -i is required")
		return subcommands.ExitUsageError
	}
	raw, err := os.ReadFile(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	var bundle inventory.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %q is not a bundle: %v\n", c.input, err)
		return subcommands.ExitUsageError
	}
	return c.app.run(ctx, func(inv *inventory.Inventory) error {
		if err := inv.Import(ctx, bundle); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "Imported %d namespaces into %s\n", len(bundle), c.app.user)
		return nil
	})
}

// =============================================================================
// stats
// =============================================================================

type statsCmd struct {
	app *app
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show how much storage the scope uses" }
func (*statsCmd) Usage() string {
	return `stockctl [-user <id>] stats
`
}

func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(inv *inventory.Inventory) error {
		stats, err := inv.Stats(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(stats.Breakdown))
		for ns := range stats.Breakdown {
			names = append(names, string(ns))
		}
		sort.Strings(names)
		for _, ns := range names {
			fmt.Fprintf(c.app.out, "%-28s %8d bytes\n", ns, stats.Breakdown[inventory.Namespace(ns)])
		}
		fmt.Fprintf(c.app.out, "%-28s %8d bytes in %d keys\n", "total", stats.TotalSize, stats.ItemCount)
		return nil
	})
}

// =============================================================================
// scopes
// =============================================================================

type scopesCmd struct {
	app *app
}

func (*scopesCmd) Name() string     { return "scopes" }
func (*scopesCmd) Synopsis() string { return "list the user scopes present in the store" }
func (*scopesCmd) Usage() string {
	return `stockctl scopes
`
}

func (*scopesCmd) SetFlags(*flag.FlagSet) {}

func (c *scopesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.app.cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	kv, err := store.Open(ctx, c.app.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer kv.Close()

	users, err := inventory.ListScopes(ctx, kv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, u := range users {
		fmt.Fprintln(c.app.out, u)
	}
	return subcommands.ExitSuccess
}

// =============================================================================
// clear
// =============================================================================

type clearCmd struct {
	app *app
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every namespace of the scope" }
func (*clearCmd) Usage() string {
	return `stockctl [-user <id>] clear -yes

  Deletes the scope. It is re-seeded when STOCK_SEED_DEFAULTS is true.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm deletion")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Error: refusing to clear without -yes")
		return subcommands.ExitUsageError
	}
	return c.app.run(ctx, func(inv *inventory.Inventory) error {
		if err := inv.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "Cleared %s\n", c.app.user)
		return nil
	})
}

// =============================================================================
// seed
// =============================================================================

type seedCmd struct {
	app      *app
	scenario string
	list     bool
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "reset the scope and load a demo scenario" }
func (*seedCmd) Usage() string {
	return `stockctl [-user <id>] seed [-scenario <id>] [-list]
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scenario, "scenario", "sample-data", "scenario to load")
	f.BoolVar(&c.list, "list", false, "list scenarios and exit")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		for _, s := range demo.Scenarios() {
			fmt.Fprintf(c.app.out, "%-12s %s\n", s.ID, s.Description)
		}
		return subcommands.ExitSuccess
	}
	return c.app.run(ctx, func(inv *inventory.Inventory) error {
		if err := demo.Load(ctx, inv, c.scenario); err != nil {
			var nf *inventory.NotFoundError
			if errors.As(err, &nf) {
				return fmt.Errorf("unknown scenario %q (see seed -list): %w", c.scenario, err)
			}
			return err
		}
		fmt.Fprintf(c.app.out, "Loaded %s into %s: %d products, %d movements\n",
			c.scenario, c.app.user, len(inv.Products()), len(inv.Movements(inventory.MovementFilter{})))
		return nil
	})
}
