package registry

import (
	"context"
	"sync"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/TheusHen/airsec/airsec/session"
	"github.com/sirupsen/logrus"
)

// DefaultWorkers bounds how many devices FetchAll talks to at once.
const DefaultWorkers = 4

// Result is the outcome of fetching one target.
type Result struct {
	State protocol.State
	Err   error
}

type fetchJob struct {
	name string
	sess session.DeviceSession
}

// FetchAll fetches every target once with DefaultWorkers workers.
func (s *Targets) FetchAll(ctx context.Context, r *Registry, opts session.Options) map[string]Result {
	return s.FetchAllWith(ctx, r, opts, DefaultWorkers)
}

// FetchAllWith fetches every target once using up to workers concurrent
// sessions. Failures are logged and reported per target; they never stop
// the other fetches.
func (s *Targets) FetchAllWith(ctx context.Context, r *Registry, opts session.Options, workers int) map[string]Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	targets := s.List()
	results := make(map[string]Result, len(targets))
	jobs := make(chan fetchJob, len(targets))
	for _, t := range targets {
		sess, err := r.New(t, opts)
		if err != nil {
			log.WithField("target", t.Name).WithError(err).Error("Cannot create session")
			results[t.Name] = Result{Err: err}
			continue
		}
		jobs <- fetchJob{name: t.Name, sess: sess}
	}
	close(jobs)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				state, err := job.sess.FetchState(ctx)
				if err != nil {
					log.WithField("target", job.name).WithError(err).Error("Could not read values from device")
				}
				mu.Lock()
				results[job.name] = Result{State: state, Err: err}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results
}
