package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

const sampleTemplate = `## 系统角色
你是编辑。

## 输入插槽
{{project_brief}}

## 输出插槽
{{outline}}
`

func TestWriteSlotsReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSlotsReport(&buf, sampleTemplate, "json"))

	var got struct {
		Slots struct {
			Inputs  []map[string]any `json:"input_slots"`
			Outputs []string         `json:"output_slots"`
		} `json:"slots"`
		Sections map[string]string `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Slots.Inputs, 1)
	assert.Equal(t, "project_brief", got.Slots.Inputs[0]["name"])
	assert.Equal(t, []string{"outline"}, got.Slots.Outputs)
	assert.Equal(t, "你是编辑。", got.Sections["system_role"])
}

func TestWriteSlotsReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSlotsReport(&buf, sampleTemplate, "yaml"))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "slots")
	assert.Equal(t, []any{"project_brief", "outline"}, got["placeholders"])
}

func TestWriteSlotsReport_UnknownFormat(t *testing.T) {
	assert.Error(t, writeSlotsReport(&bytes.Buffer{}, sampleTemplate, "toml"))
}

func TestPrintDefinitions(t *testing.T) {
	defs, err := workflow.Builtin()
	require.NoError(t, err)

	var buf bytes.Buffer
	printDefinitions(&buf, defs)
	out := buf.String()
	for _, d := range defs {
		assert.Contains(t, out, "("+d.ID+")")
	}
	assert.Contains(t, out, "[optional]")
}
