// Package processor turns dequeued jobs into side effects. Processors are
// registered by job type so new variants plug in without touching the
// dispatch worker.
package processor

import (
	"context"
	"fmt"

	"LetterFlow/internal/models"
)

// Processor handles all jobs of a single type. A returned error tells the
// worker to retry or kill the job; nil acknowledges it.
type Processor interface {
	Type() models.JobType
	Process(ctx context.Context, job models.EmailJob) error
}

type Registry struct {
	processors map[models.JobType]Processor
}

func NewRegistry(procs ...Processor) *Registry {
	r := &Registry{processors: make(map[models.JobType]Processor, len(procs))}
	for _, p := range procs {
		r.processors[p.Type()] = p
	}
	return r
}

func (r *Registry) Register(p Processor) {
	r.processors[p.Type()] = p
}

// Get returns the processor for a job type. An unknown type is a job-level
// error: the job retries and eventually lands in the dead list, where an
// operator (or a newer deploy that knows the type) can deal with it.
func (r *Registry) Get(t models.JobType) (Processor, error) {
	p, ok := r.processors[t]
	if !ok {
		return nil, fmt.Errorf("processor: no handler for job type %q", t)
	}
	return p, nil
}
