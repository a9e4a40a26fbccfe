package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner is the part of Store the retention job needs.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically drops entries older than Keep.
type Retention struct {
	store Pruner
	keep  time.Duration
	now   func() time.Time
	c     *cron.Cron
}

// StartRetention schedules a prune on spec (standard cron syntax or
// descriptors such as "@daily") and runs one immediately. Stop the job
// with Stop.
func StartRetention(store Pruner, spec string, keep time.Duration) (*Retention, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %v", keep)
	}
	r := &Retention{store: store, keep: keep, now: time.Now, c: cron.New()}
	if _, err := r.c.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("retention schedule %q: %w", spec, err)
	}
	r.run()
	r.c.Start()
	return r, nil
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := r.store.Prune(ctx, r.now().Add(-r.keep))
	if err != nil {
		log.Printf("history: prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("history: pruned %d entries older than %v", n, r.keep)
	}
}

// Stop cancels the schedule and waits for a running prune to finish.
func (r *Retention) Stop() {
	<-r.c.Stop().Done()
}
