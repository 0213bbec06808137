// Package provision sequences a full provisioning run for one firewall
// context: clear existing nodes, allocate subnets, compose the ACL and
// policy, and submit everything to the remote store in dependency order.
//
// A run is a state machine. Any failing stage halts the chain; resources
// already created on the store are left in place (no compensating rollback)
// and the summary reports exactly how far the run got.
package provision

import (
	"context"
	"fmt"

	"github.com/ngfw-tools/ruleforge/internal/alloc"
	"github.com/ngfw-tools/ruleforge/internal/logging"
	"github.com/ngfw-tools/ruleforge/internal/policy"
)

// Stage identifies where a run currently is, or where it stopped.
type Stage int

const (
	StageIdle Stage = iota
	StageClearing
	StageAllocating
	StageBuildingACL
	StageBuildingPolicy
	StageSubmitting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageClearing:
		return "clearing"
	case StageAllocating:
		return "allocating"
	case StageBuildingACL:
		return "building-acl"
	case StageBuildingPolicy:
		return "building-policy"
	case StageSubmitting:
		return "submitting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Store is the remote policy store contract the orchestrator drives.
type Store interface {
	DeleteAllFirewallNodes(ctx context.Context, fwContext string) error
	CreateSubnetsAndGroups(ctx context.Context, fwContext string, groups []alloc.Group) error
	CreateAclEntries(ctx context.Context, fwContext string, entries []policy.Entry) error
	CreateSecurityPolicy(ctx context.Context, fwContext string, sp policy.SecurityPolicy) error
}

// StageError is a run failure with the stage it happened in attached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options parameterizes one run.
type Options struct {
	// Count is the number of subnets to allocate.
	Count int
	// GroupSize is how many subnets go into each group.
	GroupSize int
	// StaticGroups are operator-maintained groups appended after the
	// generated ones.
	StaticGroups []alloc.Group
	// Template supplies the prepopulated user rules and the insertion point
	// for the derived rules.
	Template policy.Template
	// Retry applies to the delete-all-nodes call only.
	Retry RetryConfig
}

// Summary reports what a run created on the store. Counts are set only
// after the corresponding remote creation succeeded, so a failed run never
// reports partial success as full success.
type Summary struct {
	Stage       Stage
	Subnets     int
	Groups      int
	ACLEntries  int
	PolicyRules int
}

// Orchestrator runs the provisioning chain for a single context. It is
// single-threaded per run; independent contexts get independent orchestrator
// and pool instances with no shared state.
type Orchestrator struct {
	store     Store
	allocator *alloc.Allocator
	log       *logging.Logger
	stage     Stage
}

// NewOrchestrator creates an Orchestrator. A nil logger falls back to the
// default component logger.
func NewOrchestrator(store Store, allocator *alloc.Allocator, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.WithComponent("provision")
	}
	return &Orchestrator{
		store:     store,
		allocator: allocator,
		log:       log,
		stage:     StageIdle,
	}
}

// Stage returns the orchestrator's current stage.
func (o *Orchestrator) Stage() Stage {
	return o.stage
}

// Run drives the full chain for fwContext. On failure the returned Summary
// still carries the counts of resources created before the failing stage.
func (o *Orchestrator) Run(ctx context.Context, fwContext string, opts Options) (Summary, error) {
	summary := Summary{Stage: StageFailed}

	// Clearing: delete existing firewall nodes. Deleting is naturally
	// idempotent, so this is the one remote call wrapped in retry.
	if err := o.enter(ctx, StageClearing); err != nil {
		return summary, err
	}
	o.log.Info("clearing firewall nodes", "context", fwContext)
	err := Retry(ctx, opts.Retry, func() error {
		return o.store.DeleteAllFirewallNodes(ctx, fwContext)
	})
	if err != nil {
		return summary, o.fail(StageClearing, err)
	}

	// Allocating: draw subnets and partition into groups.
	if err := o.enter(ctx, StageAllocating); err != nil {
		return summary, err
	}
	groups, err := o.allocator.Allocate(opts.Count, opts.GroupSize)
	if err != nil {
		return summary, o.fail(StageAllocating, err)
	}
	allGroups := append(append([]alloc.Group{}, groups...), opts.StaticGroups...)
	o.log.Info("allocated subnets", "context", fwContext,
		"subnets", opts.Count, "groups", len(groups), "static_groups", len(opts.StaticGroups))

	// BuildingACL: one accept entry per group, statics after the gap.
	if err := o.enter(ctx, StageBuildingACL); err != nil {
		return summary, err
	}
	entries, err := policy.ComposeACL(groups)
	if err != nil {
		return summary, o.fail(StageBuildingACL, err)
	}
	entries = policy.AppendStatic(entries, opts.StaticGroups)

	// BuildingPolicy: splice derived rules into the user-rule template.
	if err := o.enter(ctx, StageBuildingPolicy); err != nil {
		return summary, err
	}
	sp, err := policy.ComposePolicy(entries, opts.Template)
	if err != nil {
		return summary, o.fail(StageBuildingPolicy, err)
	}

	// Submitting: create resources in dependency order. Creates are never
	// retried; a PUT that partially succeeded on the store could conflict
	// on replay.
	if err := o.enter(ctx, StageSubmitting); err != nil {
		return summary, err
	}
	o.log.Info("submitting configuration", "context", fwContext)

	if err := o.store.CreateSubnetsAndGroups(ctx, fwContext, allGroups); err != nil {
		return summary, o.fail(StageSubmitting, err)
	}
	summary.Groups = len(allGroups)
	for _, g := range allGroups {
		summary.Subnets += len(g.Subnets)
	}

	if err := o.store.CreateAclEntries(ctx, fwContext, entries); err != nil {
		return summary, o.fail(StageSubmitting, err)
	}
	summary.ACLEntries = len(entries)

	if err := o.store.CreateSecurityPolicy(ctx, fwContext, sp); err != nil {
		return summary, o.fail(StageSubmitting, err)
	}
	summary.PolicyRules = len(sp.Rules)

	o.stage = StageDone
	summary.Stage = StageDone
	o.log.Audit("provision", fwContext, map[string]any{
		"subnets":      summary.Subnets,
		"groups":       summary.Groups,
		"acl_entries":  summary.ACLEntries,
		"policy_rules": summary.PolicyRules,
	})
	return summary, nil
}

// Clear deletes all firewall nodes for fwContext without provisioning
// anything new. Runs the same retry policy as the Clearing stage.
func (o *Orchestrator) Clear(ctx context.Context, fwContext string, retry RetryConfig) error {
	if err := o.enter(ctx, StageClearing); err != nil {
		return err
	}
	o.log.Info("clearing firewall nodes", "context", fwContext)
	err := Retry(ctx, retry, func() error {
		return o.store.DeleteAllFirewallNodes(ctx, fwContext)
	})
	if err != nil {
		return o.fail(StageClearing, err)
	}
	o.stage = StageDone
	o.log.Audit("clear", fwContext, nil)
	return nil
}

// enter moves to the next stage, honoring cancellation between stages.
func (o *Orchestrator) enter(ctx context.Context, s Stage) error {
	if err := ctx.Err(); err != nil {
		return o.fail(s, err)
	}
	o.stage = s
	return nil
}

func (o *Orchestrator) fail(s Stage, err error) error {
	o.stage = StageFailed
	o.log.Error("provisioning failed", "stage", s.String(), "error", err)
	return &StageError{Stage: s, Err: err}
}
