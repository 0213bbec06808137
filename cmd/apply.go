package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngfw-tools/ruleforge/internal/logging"
	"github.com/ngfw-tools/ruleforge/internal/provision"
	"github.com/ngfw-tools/ruleforge/internal/restconf"
	"github.com/ngfw-tools/ruleforge/internal/validation"
)

// ApplyOptions carries the apply subcommand's flags. Server and Port
// override the config file when set.
type ApplyOptions struct {
	ConfigFile string
	Count      int
	Context    string
	Server     string
	Port       int
	Verbose    bool
}

// RunApply provisions a firewall context end to end: clear existing nodes,
// allocate subnets, compose the ACL and policy, and submit everything.
func RunApply(opts ApplyOptions) error {
	if opts.Verbose {
		logging.Default().SetLevel(logging.LevelDebug)
	}

	if err := validation.ValidateContextName(opts.Context); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	if opts.Server != "" {
		cfg.Server.Host = opts.Server
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if err := validation.ValidatePortNumber(cfg.Server.Port); err != nil {
		return err
	}

	allocator, statics, tmpl, err := buildPipeline(cfg, opts.Context)
	if err != nil {
		return err
	}

	client := restconf.New(cfg.Server.Host, cfg.Server.Port,
		restconf.WithBasicAuth(cfg.Server.Username, cfg.Server.Password),
		restconf.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds)*time.Second),
	)

	orch := provision.NewOrchestrator(client, allocator, logging.WithComponent("provision"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := orch.Run(ctx, opts.Context, provision.Options{
		Count:        opts.Count,
		GroupSize:    cfg.Pool.GroupSize,
		StaticGroups: statics,
		Template:     tmpl,
		Retry:        provision.DefaultRetryConfig(),
	})

	printSummary(os.Stdout, summary)

	if err != nil {
		var stageErr *provision.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("provisioning of context %s halted at stage %s: %w",
				opts.Context, stageErr.Stage, stageErr.Err)
		}
		return err
	}

	fmt.Printf("Context %s provisioned.\n", opts.Context)
	return nil
}
