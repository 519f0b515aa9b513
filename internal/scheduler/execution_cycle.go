package scheduler

import (
	"github.com/aristath/crosslister/internal/modules/execution"
	"github.com/rs/zerolog"
)

// ExecutionCycleJob runs one execution batch: every product whose
// strategy has been determined gets dispatched to its recommended
// marketplace. Invoked on a schedule; items inside one run are
// sequential to respect marketplace rate limits.
type ExecutionCycleJob struct {
	executor *execution.Executor
	log      zerolog.Logger
}

// NewExecutionCycleJob creates a new execution cycle job
func NewExecutionCycleJob(executor *execution.Executor, log zerolog.Logger) *ExecutionCycleJob {
	return &ExecutionCycleJob{
		executor: executor,
		log:      log.With().Str("job", "execution_cycle").Logger(),
	}
}

// Name returns the job name
func (j *ExecutionCycleJob) Name() string {
	return "execution_cycle"
}

// Run executes the batch
func (j *ExecutionCycleJob) Run() error {
	results, err := j.executor.Execute()
	if err != nil {
		return err
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	if len(results) > 0 {
		j.log.Info().
			Int("processed", len(results)).
			Int("succeeded", succeeded).
			Msg("Execution cycle finished")
	}

	return nil
}
