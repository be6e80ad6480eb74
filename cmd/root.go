/*
Spittal is a CLI tool for staging model files on an Oasis-style backend and
driving its job pipelines to a published ground-up loss.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spittal",
	Short: "Spittal - Resource staging and job pipeline orchestrator",
	Long: `Spittal uploads model and exposure files to a job-queue backend and
drives the backend's pipelines strictly in order:

  model -> exposure -> benchmark -> gul -> pubgul

Every resource is created, queued as a backend job and awaited before the
next one starts. Identifiers produced along the way are written to a run
manifest for inspection.

Example:
  spittal run --config spittal.toml
  spittal runs list
  spittal job wait 42`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var spittalErr *lib.SpittalError
		if errors.As(err, &spittalErr) {
			fmt.Fprint(os.Stderr, spittalErr.UserMessage())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./spittal.toml, ~/.config/spittal/spittal.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Add version template
	rootCmd.SetVersionTemplate("Spittal version {{.Version}}\n")
}

// loadEnvironment loads the configuration and builds the logger it describes.
// The returned close function releases the log file, if one was opened.
func loadEnvironment() (*models.ProjectConfig, *lib.Logger, func(), error) {
	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := newLogger(config.Meta)
	if err != nil {
		return nil, nil, nil, err
	}
	return config, logger, closeLog, nil
}

func newLogger(meta models.MetaConfig) (*lib.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeLog := func() {}

	if meta.LogFile != "" {
		f, err := os.OpenFile(meta.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, lib.WrapError(lib.CategoryFileSystem, "Cannot open log file "+meta.LogFile, err,
				"Check meta.log_file points to a writable location")
		}
		out = f
		closeLog = func() { _ = f.Close() }
	}

	logger := lib.NewLoggerWithWriter(lib.ParseLogLevel(meta.LogLevel), out)
	if verbose {
		logger.SetLevel(lib.LogLevelDebug)
	}
	return logger, closeLog, nil
}

// login authenticates the client, retrying transport failures only
func login(client *services.SessionClient, config *models.ProjectConfig, logger *lib.Logger) error {
	attempt := 0
	retryConfig := lib.NewRetryConfigFromModel(config.Retry)
	err := lib.ExecuteWithRetry(func() error {
		_, err := client.Authenticate(config.Login.User, config.Login.Password)
		if err != nil && lib.IsRetryableLoginError(err) && attempt+1 < retryConfig.MaxAttempts {
			lib.LogRetry(logger, "login", attempt+1, retryConfig.MaxAttempts, err)
		}
		attempt++
		return err
	}, retryConfig, lib.IsRetryableLoginError)

	var transportErr *lib.TransportError
	if errors.As(err, &transportErr) {
		return lib.ErrNetworkUnreachable(client.BaseURL(), err)
	}
	return err
}
