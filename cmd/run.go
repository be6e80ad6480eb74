package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/pipeline"
	"github.com/trobanga/spittal/internal/services"
	"github.com/trobanga/spittal/internal/ui"
)

var (
	noProgress   bool
	sectionsFlag []string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured pipelines",
	Long: `Run every pipeline configured in the config file, in order:

  model -> exposure -> benchmark -> gul -> pubgul

The configuration is validated completely before the first request is sent.
The run stops at the first resource whose job fails or times out; nothing is
retried and nothing is resumed. A manifest with every identifier produced is
written to <runs_dir>/<run-id>/manifest.json in either case.

Examples:
  # Run all configured sections
  spittal run --config spittal.toml

  # Only stage and load the model and exposure
  spittal run --sections model,exposure

  # Run without progress indicators (e.g. in CI)
  spittal run --no-progress`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress indicators")
	runCmd.Flags().StringSliceVar(&sectionsFlag, "sections", nil, "Comma-separated sections to run (default: all configured)")
}

func runRun(cmd *cobra.Command, args []string) error {
	config, logger, closeLog, err := loadEnvironment()
	if err != nil {
		return lib.ClassifyError(err)
	}
	defer closeLog()

	sections, err := selectSections(config, sectionsFlag)
	if err != nil {
		return lib.ClassifyError(err)
	}

	client := services.NewSessionClient(config.Meta.URL, config.Meta.Timeout(), logger)
	if err := login(client, config, logger); err != nil {
		return lib.ClassifyError(err)
	}

	manifest, err := pipeline.StartRun(config.Meta.RunsDir, config, sections)
	if err != nil {
		return lib.ClassifyError(err)
	}
	fmt.Printf("✓ Started run: %s\n", manifest.RunID)
	fmt.Printf("  Sections: %s\n\n", joinSections(sections))

	var result *pipeline.Result
	err = services.WithRunLock(config.Meta.RunsDir, manifest.RunID, logger, func() error {
		workflow := pipeline.NewWorkflow(client, config, logger)
		if config.Polling.ShowProgress && !noProgress {
			workflow.WithProgress(os.Stderr)
		}

		result = workflow.Run(sections)

		if err := pipeline.FinishRun(config.Meta.RunsDir, manifest, result); err != nil {
			logger.Error("Failed to save run manifest", "run_id", manifest.RunID, "error", err)
		}
		return result.Err
	})

	if result != nil {
		printRunSummary(config.Meta.RunsDir, manifest, result)
	}
	if err != nil {
		return lib.ClassifyError(err)
	}
	return nil
}

// selectSections resolves --sections against the configured sections and
// returns them in pipeline order
func selectSections(config *models.ProjectConfig, requested []string) ([]models.PipelineName, error) {
	if len(requested) == 0 {
		return config.Sections(), nil
	}

	wanted := make(map[models.PipelineName]bool, len(requested))
	for _, s := range requested {
		name := models.PipelineName(strings.TrimSpace(s))
		if !models.IsValidPipelineName(name) {
			return nil, lib.ErrInvalidConfig("--sections", fmt.Sprintf("unknown section %q", s))
		}
		if !config.HasSection(name) {
			return nil, lib.ErrInvalidConfig("--sections", fmt.Sprintf("section %q is not configured", s))
		}
		wanted[name] = true
	}

	var sections []models.PipelineName
	for _, name := range models.PipelineOrder {
		if wanted[name] {
			sections = append(sections, name)
		}
	}

	if err := lib.ValidateSectionPrerequisites(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func printRunSummary(runsDir string, manifest *models.RunManifest, result *pipeline.Result) {
	fmt.Println()
	fmt.Printf("%-12s %-8s %-8s %-8s %-8s %s\n", "PIPELINE", "TOTAL", "DONE", "FAILED", "ADOPTED", "PENDING")
	fmt.Println("-------------------------------------------------------------")
	for _, s := range pipeline.Summarize(result.Registries) {
		fmt.Printf("%-12s %-8d %-8d %-8d %-8d %d\n", s.Pipeline, s.Total, s.Done, s.Failed, s.Adopted, s.Pending)
	}
	fmt.Println()

	if result.Err != nil {
		fmt.Printf("✗ Run %s failed after %s\n", manifest.RunID, ui.FormatDuration(manifest.Duration()))
	} else {
		fmt.Printf("✓ Run %s completed in %s\n", manifest.RunID, ui.FormatDuration(manifest.Duration()))
	}
	if result.Published != "" {
		fmt.Printf("  Published GUL: %s\n", result.Published)
	}
	fmt.Printf("  Manifest: %s\n", services.GetManifestPath(runsDir, manifest.RunID))
}

func joinSections(sections []models.PipelineName) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
