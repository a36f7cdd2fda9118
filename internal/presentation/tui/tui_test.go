package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/convo/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "onboarding")

	assert.Contains(t, buf.String(), "convo")
	assert.Contains(t, buf.String(), "onboarding")
	assert.Contains(t, buf.String(), "exit")
}
