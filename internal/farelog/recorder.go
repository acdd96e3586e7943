package farelog

import (
	"context"
	"log"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/repository"
)

// Recorder appends fare-history entries as a fire-and-forget side channel.
// This is the one place in the system where a failure is swallowed: history
// feeds observability, never control flow, so a failed append must not abort
// the quote or booking that produced it.
type Recorder struct {
	repo repository.FareHistoryRepository
}

func NewRecorder(repo repository.FareHistoryRepository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, entry *domain.FareEntry) {
	if r == nil || r.repo == nil {
		return
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		log.Printf("WARNING: fare history append failed for flight %d (%s): %v", entry.FlightID, entry.Reason, err)
	}
}
