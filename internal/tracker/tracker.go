// Package tracker implements the termination detector: the single source
// of truth for when the recursive job graph is quiescent.
package tracker

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/job"
)

// Run consumes events until the outstanding-job set transitions to empty
// after at least one Announce, at which point it sends one Die per worker
// on queue and returns.
//
// If the tracking channel closes with no Announce ever having been seen
// (an input directory with no files, or no modules loaded), Run returns
// WITHOUT sending any Die: there is no quiescence transition to detect,
// since the set was never non-empty to begin with. The caller is
// responsible for closing the job queue once both ingestion and this call
// have finished, so idle workers observe channel closure and exit on their
// own.
//
// Run owns the outstanding set exclusively — it is the only goroutine that
// reads or writes it, so no lock is needed.
func Run(events <-chan job.Event, queue chan<- job.Item, workerCount int) {
	outstanding := make(map[uuid.UUID]struct{})
	everAnnounced := false

	for event := range events {
		switch {
		case event.Announce != nil:
			everAnnounced = true
			outstanding[event.Announce.ID] = struct{}{}
			log.Debug().Str("job_id", event.Announce.ID.String()).Str("module", event.Announce.ModuleName).Msg("job announced")

		case event.Result != nil:
			r := event.Result
			delete(outstanding, r.ID)
			if r.Error != "" {
				log.Error().Str("job_id", r.ID.String()).Str("error", r.Error).Msg("job failed")
			} else {
				log.Info().Str("job_id", r.ID.String()).Str("message", r.Message).Msg("job succeeded")
			}

			if everAnnounced && len(outstanding) == 0 {
				shutdown(queue, workerCount)
				return
			}
		}
	}
}

func shutdown(queue chan<- job.Item, workerCount int) {
	for i := 0; i < workerCount; i++ {
		queue <- job.Item{Die: true}
	}
}
