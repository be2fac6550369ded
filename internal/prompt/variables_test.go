package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantDisplay string
		wantControl ControlType
		wantSource  Source
		wantDesc    bool
	}{
		{
			name:        "known user input",
			input:       "project_brief",
			wantDisplay: "项目立项单",
			wantControl: ControlTextarea,
			wantSource:  SourceUser,
			wantDesc:    true,
		},
		{
			name:        "known context variable",
			input:       "substitute_market_positioning",
			wantDisplay: "市场定位结果",
			wantControl: ControlTextarea,
			wantSource:  SourceContext,
		},
		{
			name:        "list is json",
			input:       "substitute_inspiration_list",
			wantDisplay: "替身文灵感列表",
			wantControl: ControlJSON,
			wantSource:  SourceContext,
		},
		{
			name:        "unknown name is derived",
			input:       "hero_name",
			wantDisplay: "Hero Name",
			wantControl: ControlText,
			wantSource:  SourceContext,
		},
		{
			name:        "keyword match ignores case",
			input:       "SceneOUTLINE",
			wantDisplay: "SceneOUTLINE",
			wantControl: ControlTextarea,
			wantSource:  SourceContext,
		},
		{
			name:        "array keyword",
			input:       "Plot_Array",
			wantDisplay: "Plot Array",
			wantControl: ControlJSON,
			wantSource:  SourceContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(tt.input)
			assert.Equal(t, tt.wantDisplay, d.DisplayName)
			assert.Equal(t, tt.wantControl, d.Control)
			assert.Equal(t, tt.wantSource, d.Source)
			assert.Equal(t, tt.wantDesc, d.Description != "")
		})
	}
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "Main Plot", FormatName("main_plot"))
	assert.Equal(t, "Plot  Nodes", FormatName("plot__nodes"))
	assert.Equal(t, "", FormatName(""))
	assert.Equal(t, "Über Held", FormatName("über_held"))
}
