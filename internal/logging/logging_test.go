package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantLevel logrus.Level
		wantDebug bool
	}{
		{name: "default level", debug: false, wantLevel: logrus.InfoLevel, wantDebug: false},
		{name: "debug level", debug: true, wantLevel: logrus.DebugLevel, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, tt.debug)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			logger.WithField("doc", "a").Debug("rendered")
			logger.Warn("failed")

			out := buf.String()
			assert.Contains(t, out, "level=warning")
			assert.Contains(t, out, `msg=failed`)
			if tt.wantDebug {
				assert.Contains(t, out, "doc=a")
			} else {
				assert.NotContains(t, out, "rendered")
			}
		})
	}
}

func TestNew_NilWriterUsesStderr(t *testing.T) {
	logger := New(nil, false)
	assert.NotNil(t, logger.Out)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Error("dropped") })
}
