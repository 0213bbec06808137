package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ngfw-tools/ruleforge/cmd"
	"github.com/ngfw-tools/ruleforge/internal/brand"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "apply":
		applyFlags := flag.NewFlagSet("apply", flag.ExitOnError)
		opts := cmd.ApplyOptions{}

		applyFlags.IntVar(&opts.Count, "size", 0, "Number of subnets to allocate")
		applyFlags.IntVar(&opts.Count, "s", 0, "Number of subnets (short)")
		applyFlags.StringVar(&opts.Context, "context", "", "Firewall context to provision")
		applyFlags.StringVar(&opts.Context, "c", "", "Firewall context (short)")
		applyFlags.StringVar(&opts.Server, "server", "", "RESTCONF server host (overrides config)")
		applyFlags.StringVar(&opts.Server, "S", "", "RESTCONF server host (short)")
		applyFlags.IntVar(&opts.Port, "port", 0, "RESTCONF server port (overrides config)")
		applyFlags.IntVar(&opts.Port, "p", 0, "RESTCONF server port (short)")
		applyFlags.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
		applyFlags.BoolVar(&opts.Verbose, "verbose", false, "Debug logging")
		applyFlags.BoolVar(&opts.Verbose, "v", false, "Debug logging (short)")
		applyFlags.Parse(os.Args[2:])

		if opts.Context == "" {
			fmt.Fprintln(os.Stderr, "apply: -c/--context is required")
			os.Exit(1)
		}
		if opts.Count < 1 {
			fmt.Fprintln(os.Stderr, "apply: -s/--size must be a positive integer")
			os.Exit(1)
		}
		if err := cmd.RunApply(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
			os.Exit(1)
		}

	case "plan":
		planFlags := flag.NewFlagSet("plan", flag.ExitOnError)
		opts := cmd.PlanOptions{}

		planFlags.IntVar(&opts.Count, "size", 0, "Number of subnets to allocate")
		planFlags.IntVar(&opts.Count, "s", 0, "Number of subnets (short)")
		planFlags.StringVar(&opts.Context, "context", "", "Firewall context to plan for")
		planFlags.StringVar(&opts.Context, "c", "", "Firewall context (short)")
		planFlags.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
		planFlags.Parse(os.Args[2:])

		if opts.Context == "" {
			fmt.Fprintln(os.Stderr, "plan: -c/--context is required")
			os.Exit(1)
		}
		if opts.Count < 1 {
			fmt.Fprintln(os.Stderr, "plan: -s/--size must be a positive integer")
			os.Exit(1)
		}
		if err := cmd.RunPlan(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Plan failed: %v\n", err)
			os.Exit(1)
		}

	case "clear":
		clearFlags := flag.NewFlagSet("clear", flag.ExitOnError)
		opts := cmd.ClearOptions{}

		clearFlags.StringVar(&opts.Context, "context", "", "Firewall context to clear")
		clearFlags.StringVar(&opts.Context, "c", "", "Firewall context (short)")
		clearFlags.StringVar(&opts.Server, "server", "", "RESTCONF server host (overrides config)")
		clearFlags.StringVar(&opts.Server, "S", "", "RESTCONF server host (short)")
		clearFlags.IntVar(&opts.Port, "port", 0, "RESTCONF server port (overrides config)")
		clearFlags.IntVar(&opts.Port, "p", 0, "RESTCONF server port (short)")
		clearFlags.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
		clearFlags.BoolVar(&opts.Verbose, "verbose", false, "Debug logging")
		clearFlags.BoolVar(&opts.Verbose, "v", false, "Debug logging (short)")
		clearFlags.Parse(os.Args[2:])

		if opts.Context == "" {
			fmt.Fprintln(os.Stderr, "clear: -c/--context is required")
			os.Exit(1)
		}
		if err := cmd.RunClear(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		opts := cmd.CheckOptions{}

		checkFlags.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
		checkFlags.BoolVar(&opts.Verbose, "verbose", false, "Show pool and group detail")
		checkFlags.BoolVar(&opts.Verbose, "v", false, "Show detail (short)")
		checkFlags.Parse(os.Args[2:])

		if opts.ConfigFile == "" && len(checkFlags.Args()) > 0 {
			opts.ConfigFile = checkFlags.Arg(0)
		}
		if err := cmd.RunCheck(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "init":
		initFlags := flag.NewFlagSet("init", flag.ExitOnError)
		opts := cmd.InitOptions{}

		initFlags.StringVar(&opts.ConfigFile, "config", "", "Where to write the config")
		initFlags.BoolVar(&opts.Force, "force", false, "Overwrite an existing config")
		initFlags.BoolVar(&opts.Force, "f", false, "Overwrite (short)")
		initFlags.Parse(os.Args[2:])

		if err := cmd.RunInit(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
			os.Exit(1)
		}

	case "version", "--version", "-V":
		cmd.RunVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  apply     Provision a firewall context: clear it, allocate subnets,
            compose the ACL and policy, and submit everything
            Options: --size (-s) <n>, --context (-c) <name>,
                     --server (-S) <host>, --port (-p) <port>,
                     --config <file>, --verbose (-v)
  plan      Print the payloads apply would submit, without network I/O
            Options: --size (-s), --context (-c), --config
  clear     Delete every firewall node under a context
            Options: --context (-c), --server (-S), --port (-p), --config
  check     Validate the configuration file
            Options: --config <file>, --verbose (-v)
  init      Write a default configuration file
            Options: --config <file>, --force (-f)
  version   Show build information

Examples:
  %s apply -s 10 -c perimeter
  %s plan -s 10 -c perimeter --config ./ruleforge.hcl
  %s clear -c perimeter -S 192.0.2.10 -p 8008
  %s check -v /etc/ruleforge/ruleforge.hcl
`, brand.Name, brand.Description,
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
