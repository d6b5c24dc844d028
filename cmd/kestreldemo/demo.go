package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"kestrel/internal/klog"
	"kestrel/pkg/kauthority"
	"kestrel/pkg/kconfig"
	"kestrel/pkg/kestrel"
	"kestrel/pkg/ksignal"
	"kestrel/pkg/kscope"
	"kestrel/pkg/ktask"
)

// demoResult summarizes one Task run, printed by the run subcommand and
// tallied by the watch subcommand.
type demoResult struct {
	name string
	val  any
	err  error
}

func setupDemo() (*kauthority.Authority, *kscope.Scope, error) {
	cfg, err := kconfig.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	level := klog.LevelInfo
	if viper.GetBool("verbose") {
		level = klog.LevelDebug
	}
	logger := klog.New(nil, level)

	authority := kestrel.NewAuthority(cfg, kauthority.WithLogger(logger))
	newScope := kestrel.NewScopeFactory(authority)
	scope, err := newScope(kscope.Config{ID: "demo", Name: "Demo", Workers: cfg.DefaultWorkers})
	if err != nil {
		authority.Dispose()
		return nil, nil, err
	}
	scope.Mount()

	return authority, scope, nil
}

// runDemoBatch exercises Effect, a plain Run, a Run that spawns a
// Worker and registers a Handler, and a streaming Run — returning one
// demoResult per call.
func runDemoBatch(scope *kscope.Scope) []demoResult {
	results := make([]demoResult, 0, 4)

	val, err := scope.Effect(func() (any, error) { return "effect-ok", nil })
	results = append(results, demoResult{name: "effect", val: val, err: err})

	val, err = scope.Run(func(ctx *ktask.Context) (any, error) {
		return 42, nil
	}, ktask.RunOptions{})
	results = append(results, demoResult{name: "plain-run", val: val, err: err})

	val, err = scope.Run(func(ctx *ktask.Context) (any, error) {
		done := make(chan struct{})
		if _, werr := ctx.SpawnWorker(func(sig *ksignal.Signal) error {
			close(done)
			return nil
		}); werr != nil {
			return nil, werr
		}
		<-done

		hh, herr := ctx.AddHandler(func() error { return nil })
		if herr != nil {
			return nil, herr
		}
		return "handled", hh.Execute()
	}, ktask.RunOptions{})
	results = append(results, demoResult{name: "worker-and-handler", val: val, err: err})

	val, err = scope.Run(func(ctx *ktask.Context) (any, error) {
		ctx.Emit(1)
		ctx.Emit(2)
		ctx.Emit(3)
		return "streamed", nil
	}, ktask.RunOptions{Streaming: true})
	results = append(results, demoResult{name: "streaming-run", val: val, err: err})

	return results
}

func summaryLine(r demoResult) string {
	if r.err != nil {
		return fmt.Sprintf("%-20s ERROR %v", r.name, r.err)
	}
	return fmt.Sprintf("%-20s OK    %v", r.name, r.val)
}

func metricsLine(a *kauthority.Authority) string {
	m := a.Metrics()
	return fmt.Sprintf(
		"scopes=%d pool=%d idle=%d busy=%d disposed=%v at=%s",
		m.ScopeCount, m.WorkerPoolSize, m.IdleWorkers, m.BusyWorkers, m.IsDisposed,
		time.Now().Format(time.RFC3339),
	)
}
