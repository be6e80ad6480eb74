package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/services"
	"github.com/trobanga/spittal/internal/ui"
)

// jobCmd represents the job command group
var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect backend jobs",
	Long: `Inspect asynchronous jobs on the backend by job id.

Available subcommands:
  status - Fetch the current status of a job once
  wait   - Block until a job is done, failed or the polling budget is spent`,
}

// jobStatusCmd represents the job status command
var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch the status of a backend job",
	Long: `Fetch the status of a backend job once and print the raw reply.

Example:
  spittal job status 42`,
	Args: cobra.ExactArgs(1),
	RunE: runJobStatus,
}

// jobWaitCmd represents the job wait command
var jobWaitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Wait for a backend job to finish",
	Long: `Poll a backend job with the configured polling settings until it
reports done or FAILED, or until polling.max_attempts is exhausted.

Useful to keep waiting on a job whose run timed out.

Example:
  spittal job wait 42`,
	Args: cobra.ExactArgs(1),
	RunE: runJobWait,
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobWaitCmd)
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	jobID, err := parseJobID(args[0])
	if err != nil {
		return err
	}

	poller, closeLog, err := newJobPoller()
	if err != nil {
		return lib.ClassifyError(err)
	}
	defer closeLog()

	status, raw, err := poller.FetchStatus(jobID)
	if err != nil {
		return lib.ClassifyError(err)
	}

	fmt.Printf("Job %d: %s %s\n", jobID, getJobStatusSymbol(status), status)
	fmt.Printf("  Reply: %s\n", raw)
	return nil
}

func runJobWait(cmd *cobra.Command, args []string) error {
	jobID, err := parseJobID(args[0])
	if err != nil {
		return err
	}

	poller, closeLog, err := newJobPoller()
	if err != nil {
		return lib.ClassifyError(err)
	}
	defer closeLog()

	outcome, err := poller.AwaitCompletion(jobID)
	if err != nil {
		return lib.ClassifyError(err)
	}

	fmt.Printf("✓ Job %d finished: %s\n", jobID, outcome)
	return nil
}

// newJobPoller logs in and returns a poller that only awaits by job id
func newJobPoller() (*services.Poller, func(), error) {
	config, logger, closeLog, err := loadEnvironment()
	if err != nil {
		return nil, nil, err
	}

	client := services.NewSessionClient(config.Meta.URL, config.Meta.Timeout(), logger)
	if err := login(client, config, logger); err != nil {
		closeLog()
		return nil, nil, err
	}

	pollConfig := services.NewPollConfig(config.Polling)
	logger.Debug("Polling budget", "max_wait", ui.FormatDuration(pollConfig.MaxWait()))

	poller := services.NewPoller(client, nil, pollConfig, logger)
	if config.Polling.ShowProgress {
		poller.WithProgress(os.Stderr)
	}
	return poller, closeLog, nil
}

func parseJobID(arg string) (int64, error) {
	jobID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || jobID <= 0 {
		return 0, lib.ErrInvalidConfig("job-id", fmt.Sprintf("job id must be a positive integer, got %q", arg))
	}
	return jobID, nil
}

func getJobStatusSymbol(status string) string {
	switch status {
	case "done", "completed":
		return "✓"
	case "running", "queued":
		return "→"
	case "FAILED", "failed", "interrupted":
		return "✗"
	default:
		return " "
	}
}
