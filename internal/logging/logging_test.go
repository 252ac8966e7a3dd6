package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  log.Level
	}{
		{name: "default", level: "", want: log.WarnLevel},
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "mixed case and spaces", level: " Info ", want: log.InfoLevel},
		{name: "error", level: "error", want: log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(&bytes.Buffer{}, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty")
	assert.ErrorContains(t, err, "parse log level")
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info")
	require.NoError(t, err)

	Component(logger, "tokens").Info("credential stored")

	assert.Contains(t, buf.String(), "component=tokens")
	assert.Contains(t, buf.String(), "credential stored")
}
