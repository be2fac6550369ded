package workflow

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func getFixturePath(name string) string {
	// Find repo root
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return filepath.Join(dir, "testdata", "fixtures", name+".yaml")
}

func TestParseShortStory(t *testing.T) {
	wfs, err := LoadWorkflows(getFixturePath("short_story"))
	require.NoError(t, err)
	require.Len(t, wfs, 1)

	wf := wfs[0]
	assert.Equal(t, "short-story", wf.ID)
	assert.Equal(t, "都市", wf.Genre)
	require.Equal(t, 2, wf.Len())

	form, ok := wf.Steps[0].(FormStep)
	require.True(t, ok, "first step should be a form")
	assert.Equal(t, StepForm, form.Kind())
	assert.Equal(t, []string{"project_brief", "tone"}, form.FieldNames())
	assert.Equal(t, FieldTextarea, form.Fields[0].Control)
	assert.True(t, form.Fields[0].Required)
	assert.Equal(t, []string{"轻松", "沉重"}, form.Fields[1].Options)

	p, ok := wf.Steps[1].(PromptStep)
	require.True(t, ok, "second step should be a prompt")
	assert.True(t, p.Header().Optional)
	assert.Equal(t, "general", p.Category)
	assert.Equal(t, "短篇-大纲", p.TemplateName)
	assert.Equal(t, []string{"大纲"}, p.Keywords)
	assert.Equal(t, []string{"outline"}, p.Outputs)

	assert.Equal(t, 1, wf.Index("outline"))
	assert.Equal(t, -1, wf.Index("nope"))
	assert.NoError(t, wf.Validate())
}

func TestParseMultiDocumentSkipsEmpty(t *testing.T) {
	wfs, err := LoadWorkflows(getFixturePath("multi"))
	require.NoError(t, err)
	require.Len(t, wfs, 2)

	assert.Equal(t, "first", wfs[0].ID)
	assert.Equal(t, "second", wfs[1].ID)
	assert.NotNil(t, Find(wfs, "second"))
	assert.Nil(t, Find(wfs, "third"))
}

func TestParseUnknownStepType(t *testing.T) {
	_, err := LoadWorkflows(getFixturePath("unknown_step"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step type")
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := LoadWorkflows("/nonexistent/file.yaml")
	assert.Error(t, err)

	_, err = Parse([]byte("---\n---\n"))
	assert.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"b.yaml": {Data: []byte("id: b\nname: B\nsteps:\n  - {id: s, name: S, type: prompt}\n")},
		"a.yaml": {Data: []byte("id: a\nname: A\nsteps:\n  - {id: s, name: S, type: prompt}\n")},
		"c.txt":  {Data: []byte("ignored")},
	}

	defs, err := LoadFS(fsys, "*.yaml")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].ID)
	assert.Equal(t, "b", defs[1].ID)

	_, err = LoadFS(fsys, "*.json")
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	wfs, err := LoadWorkflows(getFixturePath("short_story"))
	require.NoError(t, err)

	data, err := yaml.Marshal(wfs[0])
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, wfs[0], again[0])
}

func TestValidateWorkflow(t *testing.T) {
	prompt := func(id string) Step {
		return PromptStep{StepHeader: StepHeader{ID: id, Name: id}}
	}

	tests := []struct {
		name    string
		wf      Definition
		wantErr string
	}{
		{
			name: "valid workflow",
			wf:   Definition{ID: "w", Name: "W", Steps: []Step{prompt("a"), prompt("b")}},
		},
		{
			name:    "missing id",
			wf:      Definition{Name: "W", Steps: []Step{prompt("a")}},
			wantErr: "missing",
		},
		{
			name:    "empty steps",
			wf:      Definition{ID: "w", Name: "W", Steps: []Step{}},
			wantErr: "at least",
		},
		{
			name:    "step without name",
			wf:      Definition{ID: "w", Name: "W", Steps: []Step{PromptStep{StepHeader: StepHeader{ID: "a"}}}},
			wantErr: "step 1",
		},
		{
			name:    "duplicate step id",
			wf:      Definition{ID: "w", Name: "W", Steps: []Step{prompt("a"), prompt("a")}},
			wantErr: "reuses id",
		},
		{
			name: "form without fields",
			wf: Definition{ID: "w", Name: "W", Steps: []Step{
				FormStep{StepHeader: StepHeader{ID: "f", Name: "F"}},
			}},
			wantErr: "step 1",
		},
		{
			name: "duplicate field",
			wf: Definition{ID: "w", Name: "W", Steps: []Step{
				FormStep{
					StepHeader: StepHeader{ID: "f", Name: "F"},
					Fields:     []Field{{Name: "x", Label: "X"}, {Name: "x", Label: "X2"}},
				},
			}},
			wantErr: "twice",
		},
		{
			name: "bad control",
			wf: Definition{ID: "w", Name: "W", Steps: []Step{
				FormStep{
					StepHeader: StepHeader{ID: "f", Name: "F"},
					Fields:     []Field{{Name: "x", Label: "X", Control: "slider"}},
				},
			}},
			wantErr: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wf.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAllRejectsDuplicateIDs(t *testing.T) {
	def := &Definition{ID: "w", Name: "W", Steps: []Step{PromptStep{StepHeader: StepHeader{ID: "a", Name: "A"}}}}

	assert.NoError(t, ValidateAll([]*Definition{def}))
	assert.Error(t, ValidateAll([]*Definition{def, def}))
}

func TestBuiltin(t *testing.T) {
	defs, err := Builtin()
	require.NoError(t, err)

	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"fanfic-generator", "tishen", "duoziduofu", "dark-duoziduofu"}, ids)

	tishen := Find(defs, "tishen")
	require.NotNil(t, tishen)
	require.Equal(t, 10, tishen.Len())
	assert.Equal(t, StepForm, tishen.Steps[0].Kind())
	theme, ok := tishen.Steps[tishen.Index("theme")].(PromptStep)
	require.True(t, ok)
	assert.Equal(t, "替身文-宏观-主题定位", theme.TemplateName)
	assert.Equal(t, []string{"substitute_theme_positioning", "theme_layers"}, theme.Outputs)

	duo := Find(defs, "duoziduofu")
	require.NotNil(t, duo)
	assert.True(t, duo.Steps[duo.Index("market")].Header().Optional)
}
