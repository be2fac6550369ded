package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "debug", "json")
	t.Cleanup(func() { Setup("info", "text") })

	WithModule("wizard").WithField("step_id", "brief").Debug("entered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "wizard", entry["module"])
	assert.Equal(t, "brief", entry["step_id"])
	assert.Equal(t, "entered", entry["msg"])
}

func TestSetupUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "loud", "text")
	t.Cleanup(func() { Setup("info", "text") })

	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("dropped") })
}
