package cmd

import (
	"context"
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

// ClearOptions carries the clear subcommand's flags.
type ClearOptions struct {
	ConfigFile string
	Context    string
	Server     string
	Port       int
	Verbose    bool
}

// RunClear removes every firewall node under the context without
// provisioning a replacement.
func RunClear(opts ClearOptions) error {
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

	client := restconf.New(cfg.Server.Host, cfg.Server.Port,
		restconf.WithBasicAuth(cfg.Server.Username, cfg.Server.Password),
		restconf.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds)*time.Second),
	)

	orch := provision.NewOrchestrator(client, nil, logging.WithComponent("provision"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Clear(ctx, opts.Context, provision.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("failed to clear context %s: %w", opts.Context, err)
	}

	fmt.Printf("Context %s cleared.\n", opts.Context)
	return nil
}
