// Command stockctl inspects and maintains stored inventory scopes.
//
//	stockctl -user alice export -o alice.json
//	stockctl -user alice import -i alice.json
//	stockctl -user alice stats
//	stockctl -user alice seed -scenario sample-data
//	stockctl -user alice clear
//	stockctl scopes
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/warp/stock-master/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	a := newApp(cfg, os.Stdout)
	a.SetFlags(flag.CommandLine)
	Register(commander, a)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
