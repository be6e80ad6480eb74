package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps the progressbar library for byte transfers of known size
type ProgressBar struct {
	bar         *progressbar.ProgressBar
	description string
	total       int64
	current     int64
}

// NewProgressBarWithWriter creates a byte progress bar on writer
// Updates every 500ms to provide timely feedback to users
func NewProgressBarWithWriter(total int64, description string, writer io.Writer) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(false),
	)

	return &ProgressBar{
		bar:         bar,
		description: description,
		total:       total,
	}
}

// WrapReader returns a reader that advances the bar as bytes are read from r
func (p *ProgressBar) WrapReader(r io.Reader) io.Reader {
	return &countingReader{reader: r, bar: p}
}

type countingReader struct {
	reader io.Reader
	bar    *ProgressBar
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.reader.Read(b)
	if n > 0 {
		_ = c.bar.Add(int64(n))
	}
	return n, err
}

// Add increments the progress bar by the given amount
func (p *ProgressBar) Add(amount int64) error {
	p.current += amount
	return p.bar.Add64(amount)
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() error {
	return p.bar.Finish()
}

// GetPercentage returns current completion percentage (0-100)
func (p *ProgressBar) GetPercentage() float64 {
	if p.total == 0 {
		return 0
	}
	return (float64(p.current) / float64(p.total)) * 100
}

// Spinner provides visual feedback while a backend job runs for an unknown time
type Spinner struct {
	description string
	startTime   time.Time
	active      bool
	out         io.Writer
}

// NewSpinnerWithWriter creates a spinner writing to out
func NewSpinnerWithWriter(description string, out io.Writer) *Spinner {
	return &Spinner{
		description: description,
		startTime:   time.Now(),
		out:         out,
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.active = true
	s.startTime = time.Now()
	_, _ = fmt.Fprintf(s.out, "%s...\n", s.description)
}

// Stop ends the spinner animation
func (s *Spinner) Stop(success bool) {
	s.active = false
	elapsed := time.Since(s.startTime)

	if success {
		_, _ = fmt.Fprintf(s.out, "\r✓ %s (completed in %s)\n", s.description, FormatDuration(elapsed))
	} else {
		_, _ = fmt.Fprintf(s.out, "\r✗ %s (failed after %s)\n", s.description, FormatDuration(elapsed))
	}
}

// UpdateMessage updates the spinner's description while it's running
func (s *Spinner) UpdateMessage(message string) {
	s.description = message
	if s.active {
		_, _ = fmt.Fprintf(s.out, "\r%s... (%v elapsed)", message, time.Since(s.startTime).Round(time.Second))
	}
}

// IsActive returns whether the spinner is currently running
func (s *Spinner) IsActive() bool {
	return s.active
}
