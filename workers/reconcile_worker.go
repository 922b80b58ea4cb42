// workers/reconcile_worker.go
package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"tournament-draft-system/connectivity"
	"tournament-draft-system/services"
)

// ReconcileWorker drives the background reconciliation passes: one
// immediately after every went-online transition, plus a periodic pass while
// online so drift from tolerated remote failures converges. The repository's
// own single-flight guard keeps overlapping triggers harmless.
type ReconcileWorker struct {
	repo     *services.DraftRepository
	monitor  *connectivity.Monitor
	interval time.Duration
}

func NewReconcileWorker(repo *services.DraftRepository, monitor *connectivity.Monitor, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReconcileWorker{repo: repo, monitor: monitor, interval: interval}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Draft Reconcile Worker…")

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[SYNC] failed to create scheduler, periodic pass disabled: %v", err)
	} else {
		_, _ = sched.NewJob(
			gocron.DurationJob(w.interval),
			gocron.NewTask(func() {
				if !w.monitor.IsOnline() {
					return
				}
				w.reconcileAll(ctx)
			}),
		)
		sched.Start()
	}

	go w.watchTransitions(ctx, sched)
}

func (w *ReconcileWorker) watchTransitions(ctx context.Context, sched gocron.Scheduler) {
	events, cancel := w.monitor.Subscribe()
	defer cancel()

	for {
		select {
		case ev := <-events:
			if ev == connectivity.WentOnline {
				log.Println("[SYNC] connectivity restored, reconciling local drafts")
				w.reconcileAll(ctx)
			}
		case <-ctx.Done():
			if sched != nil {
				_ = sched.Shutdown()
			}
			log.Println("⏹️ Draft Reconcile Worker stopped")
			return
		}
	}
}

// reconcileAll runs one reconciliation pass per owner known to the local
// collection.
func (w *ReconcileWorker) reconcileAll(ctx context.Context) {
	for _, owner := range w.repo.Owners() {
		runCtx, cancelRun := context.WithTimeout(ctx, 60*time.Second)
		err := w.repo.Reconcile(runCtx, owner)
		cancelRun()
		switch {
		case err == nil:
		case errors.Is(err, services.ErrSyncInFlight):
			// Someone else is already syncing; that pass covers us.
			return
		default:
			log.Printf("[SYNC] reconcile for %s failed: %v", owner, err)
		}
	}
}
