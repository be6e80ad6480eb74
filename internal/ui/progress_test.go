package ui_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/ui"
)

func TestProgressBar_WrapReaderCountsBytes(t *testing.T) {
	var out bytes.Buffer
	bar := ui.NewProgressBarWithWriter(10, "Uploading events.csv", &out)

	data, err := io.ReadAll(bar.WrapReader(strings.NewReader("0123456789")))
	require.NoError(t, err)
	require.NoError(t, bar.Finish())

	assert.Equal(t, "0123456789", string(data))
	assert.InDelta(t, 100.0, bar.GetPercentage(), 0.001)
	assert.Contains(t, out.String(), "Uploading events.csv")
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	bar := ui.NewProgressBarWithWriter(0, "empty", io.Discard)
	assert.Equal(t, 0.0, bar.GetPercentage())
}

func TestSpinner_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	spinner := ui.NewSpinnerWithWriter("Waiting for job 7", &out)

	assert.False(t, spinner.IsActive())
	spinner.Start()
	assert.True(t, spinner.IsActive())

	spinner.UpdateMessage("Waiting for job 7: running, check 1/100")
	spinner.Stop(true)

	assert.False(t, spinner.IsActive())
	assert.Contains(t, out.String(), "Waiting for job 7...")
	assert.Contains(t, out.String(), "check 1/100")
	assert.Contains(t, out.String(), "✓ Waiting for job 7: running, check 1/100")
}

func TestSpinner_StopFailed(t *testing.T) {
	var out bytes.Buffer
	spinner := ui.NewSpinnerWithWriter("Waiting for job 8", &out)
	spinner.Start()
	spinner.Stop(false)

	assert.Contains(t, out.String(), "✗ Waiting for job 8 (failed after")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", ui.FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1m30s", ui.FormatDuration(90*time.Second))
	assert.Equal(t, "2h5m", ui.FormatDuration(2*time.Hour+5*time.Minute))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", ui.FormatBytes(512))
	assert.Equal(t, "1.50 KB", ui.FormatBytes(1536))
	assert.Equal(t, "2.00 MB", ui.FormatBytes(2*1024*1024))
	assert.Equal(t, "1.00 GB", ui.FormatBytes(1024*1024*1024))
}
