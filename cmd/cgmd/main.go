package main

import (
	"cgmd/internal/di"
	"cgmd/internal/structures"
	"flag"
	"fmt"
	"os"

	_ "time/tzdata"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config/config.yaml", "path to the configuration file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "log to the console as well")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "cgmd: %s\n", err)
		os.Exit(1)
	}
}
