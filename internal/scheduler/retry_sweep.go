package scheduler

import (
	"github.com/aristath/crosslister/internal/modules/execution"
	"github.com/rs/zerolog"
)

// RetrySweepJob re-drives due retry queue items
type RetrySweepJob struct {
	processor *execution.RetryProcessor
	log       zerolog.Logger
}

// NewRetrySweepJob creates a new retry sweep job
func NewRetrySweepJob(processor *execution.RetryProcessor, log zerolog.Logger) *RetrySweepJob {
	return &RetrySweepJob{
		processor: processor,
		log:       log.With().Str("job", "retry_sweep").Logger(),
	}
}

// Name returns the job name
func (j *RetrySweepJob) Name() string {
	return "retry_sweep"
}

// Run executes one sweep
func (j *RetrySweepJob) Run() error {
	return j.processor.Run()
}
