package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestStatusLine(t *testing.T) {
	line := StatusLine(termenv.Ascii, domain.ExecutionState{
		UnitID:      "login",
		Status:      domain.StatusRunning,
		Progress:    42,
		CurrentNode: "n3",
	})
	assert.Equal(t, "login                running    42%  @n3", line)

	line = StatusLine(termenv.Ascii, domain.ExecutionState{UnitID: "x", Status: domain.StatusError, Error: "boom"})
	assert.Contains(t, line, "  boom")
}

func TestStatusMarkdown(t *testing.T) {
	md := StatusMarkdown(
		[]domain.ExecutionState{
			{UnitID: "a", Status: domain.StatusCompleted, Progress: 100},
			{UnitID: "b", Status: domain.StatusError, Error: "x|y"},
		},
		&domain.MasterState{Status: domain.StatusRunning, Progress: 50, UnitsCompleted: 1, TotalUnits: 2, CurrentUnit: "B"},
	)

	assert.Contains(t, md, "- **Progress:** 50% (1/2 units)")
	assert.Contains(t, md, "- **Current unit:** B")
	assert.Contains(t, md, "| a | completed | 100% | - | - |")
	assert.Contains(t, md, `| b | error | 0% | - | x\|y |`)
	assert.NotContains(t, StatusMarkdown(nil, nil), "Run all")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
