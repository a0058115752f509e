// Package worker runs fire-and-forget background tasks that must outlive the
// request that started them. Failures are logged and counted, never returned
// to the caller.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-orcamento-backend/internal/observability"
)

// Group tracks in-flight background tasks so shutdown can wait for them.
// The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn in a new goroutine. fn receives a context that keeps ctx's
// values (trace span, request id) but is never cancelled with it.
func (g *Group) Go(ctx context.Context, name string, fn func(context.Context) error) {
	g.wg.Add(1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				observability.IncBackgroundFailure(name)
				log.Error().
					Str("task", name).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("background task panicked")
			}
		}()
		if err := fn(detached); err != nil {
			observability.IncBackgroundFailure(name)
			log.Error().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}

// Wait blocks until every task has returned or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
