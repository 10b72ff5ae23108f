package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"sellerhub/internal/repositories"
)

// LinkReconciler repairs the inconsistency a crash can leave between
// subscription creation and the owner-link update: a persisted subscription
// with no user backlink. It only touches orphans that are the owner's newest
// record, so a link that was superseded by a later purchase is never
// clobbered. Repairs are logged, never surfaced to end users.
type LinkReconciler struct {
	subscriptions repositories.SubscriptionRepository
	users         repositories.UserRepository
	gracePeriod   time.Duration
	batchSize     int
}

func NewLinkReconciler(
	subscriptions repositories.SubscriptionRepository,
	users repositories.UserRepository,
	gracePeriod time.Duration,
	batchSize int,
) *LinkReconciler {
	return &LinkReconciler{
		subscriptions: subscriptions,
		users:         users,
		gracePeriod:   gracePeriod,
		batchSize:     batchSize,
	}
}

// Run finds orphaned subscriptions older than the grace period and restores
// their owner links. A failure on one orphan does not stop the rest of the
// batch.
func (r *LinkReconciler) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.gracePeriod)

	orphans, err := r.subscriptions.ListUnlinked(ctx, cutoff, r.batchSize)
	if err != nil {
		return fmt.Errorf("list orphaned subscriptions: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	var failed int
	for _, sub := range orphans {
		if err := r.users.LinkSubscription(ctx, sub.OwnerID, sub.ID); err != nil {
			failed++
			log.Printf("link-reconciler: failed to repair link for subscription %s (owner %s): %v", sub.ID, sub.OwnerID, err)
			continue
		}
		log.Printf("link-reconciler: repaired link for subscription %s (owner %s)", sub.ID, sub.OwnerID)
	}

	if failed > 0 {
		return fmt.Errorf("link-reconciler: %d of %d repairs failed", failed, len(orphans))
	}
	return nil
}
