package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
	"github.com/trobanga/spittal/internal/ui"
	"gopkg.in/yaml.v3"
)

var showOutput string

// runsCmd represents the runs command group
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long: `Inspect the manifests written by 'spittal run'.

Manifests are diagnostics only: they are never read back as input to
another run.

Available subcommands:
  list - List all recorded runs
  show - Show every identifier recorded for one run`,
}

// runsListCmd represents the runs list command
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded runs",
	Long: `List all runs in the runs directory, newest first.

A run still marked running whose process is gone is shown as interrupted.

Example:
  spittal runs list`,
	Args: cobra.NoArgs,
	RunE: runRunsList,
}

// runsShowCmd represents the runs show command
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's manifest",
	Long: `Show the registries recorded for a run: every upload handle, download
handle, creation task id, job id and job state.

Examples:
  spittal runs show 2f1c...
  spittal runs show 2f1c... --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsShowCmd.Flags().StringVarP(&showOutput, "output", "o", "text", "Output format: text, json or yaml")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return lib.ClassifyError(err)
	}

	runs, err := services.ListRuns(config.Meta.RunsDir)
	if err != nil {
		return lib.ClassifyError(err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	// Print table header
	fmt.Printf("%-38s %-14s %-34s %-10s %s\n", "RUN ID", "STATUS", "SECTIONS", "DURATION", "AGE")
	fmt.Println("------------------------------------------------------------------------------------------------------------")

	for _, run := range runs {
		status := services.EffectiveStatus(config.Meta.RunsDir, run)
		fmt.Printf("%-38s %s %-12s %-34s %-10s %s\n",
			run.RunID,
			getJobStatusSymbol(status),
			status,
			joinSections(run.Sections),
			ui.FormatDuration(run.Duration()),
			formatAge(time.Since(run.StartedAt)),
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))

	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return lib.ClassifyError(err)
	}

	manifest, err := services.LoadManifest(config.Meta.RunsDir, args[0])
	if err != nil {
		return lib.ClassifyError(err)
	}

	return writeManifest(os.Stdout, manifest, showOutput, services.EffectiveStatus(config.Meta.RunsDir, manifest))
}

// writeManifest renders a manifest in the requested format
func writeManifest(w io.Writer, manifest *models.RunManifest, format string, status string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(manifest); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return enc.Close()

	case "text", "":
		return writeManifestText(w, manifest, status)

	default:
		return lib.ErrInvalidConfig("--output", fmt.Sprintf("unknown output format %q (want text, json or yaml)", format))
	}
}

func writeManifestText(w io.Writer, manifest *models.RunManifest, status string) error {
	fmt.Fprintf(w, "Run:      %s\n", manifest.RunID)
	fmt.Fprintf(w, "Status:   %s %s\n", getJobStatusSymbol(status), status)
	fmt.Fprintf(w, "Backend:  %s (user %s)\n", manifest.BackendURL, manifest.User)
	fmt.Fprintf(w, "Started:  %s\n", manifest.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", ui.FormatDuration(manifest.Duration()))
	if manifest.Published != "" {
		fmt.Fprintf(w, "Published: %s\n", manifest.Published)
	}
	if manifest.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", manifest.Error)
	}

	for _, name := range models.PipelineOrder {
		records, ok := manifest.Registries[string(name)]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "\n[%s]\n", name)
		fmt.Fprintf(w, "  %-32s %-8s %-8s %-8s %-8s %s\n", "RESOURCE", "UPLOAD", "DOWNLOAD", "TASK", "JOB", "STATE")

		keys := make([]string, 0, len(records))
		for k := range records {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			r := records[k]
			fmt.Fprintf(w, "  %-32s %-8s %-8s %-8s %-8s %s\n",
				k, formatID(r.UploadHandle), formatID(r.DownloadHandle),
				formatID(r.CreationTaskID), formatID(r.JobID), formatState(r))
		}
	}
	return nil
}

func formatID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func formatState(r models.ResourceRecord) string {
	if r.JobState != models.JobStateNone {
		return string(r.JobState)
	}
	if r.IsCreated() && !r.IsStaged() {
		return "adopted"
	}
	if r.IsCreated() {
		return "created"
	}
	if r.IsStaged() {
		return "staged"
	}
	return "-"
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}
