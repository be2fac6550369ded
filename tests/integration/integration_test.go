package integration

import (
	"strings"
	"testing"
	"time"

	llmctesting "github.com/DomeenoH/MuMuAINovel/internal/testing"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

func builtin(t *testing.T, id string) *workflow.Definition {
	t.Helper()
	defs, err := workflow.Builtin()
	if err != nil {
		t.Fatalf("failed to load built-in workflows: %v", err)
	}
	def := workflow.Find(defs, id)
	if def == nil {
		t.Fatalf("built-in workflow %s not found", id)
	}
	return def
}

func TestTishenWorkflow(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	script := llmctesting.Script{
		Values: map[string]string{
			"project_brief":    "替身文，女主被当作白月光的替身，最终觉醒",
			"inspiration_pool": "镜子，雨夜，旧信",
		},
	}
	result, err := runner.Run(builtin(t, "tishen"), script, 30*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	llmctesting.NewAssertions(t, result).
		Completed().
		RequestCount(8).
		StepUsedTemplate("inspiration", "tishen-inspiration").
		StepUsedTemplate("theme", "tishen-theme").
		ContextHasValue("inspiration_summary", "inspiration_summary from inspiration").
		ContextHasValue("theme_layers", "theme_layers from theme").
		ContextHasValue("theme_output", "Result for theme").
		ProjectTitle("替身文流程项目")

	if got := result.Projects[0].Theme; got != "substitute_theme_positioning from theme" {
		t.Errorf("project theme = %q", got)
	}
}

func TestOutputsFlowIntoLaterPrompts(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	script := llmctesting.Script{
		Values: map[string]string{
			"project_brief":    "镜中人",
			"inspiration_pool": "旧信",
		},
		Replies: map[string]string{
			"inspiration": "```json\n{\"inspiration_summary\": \"被遗忘的信\"}\n```",
		},
	}
	result, err := runner.Run(builtin(t, "tishen"), script, 30*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// inspiration, market, theme: the theme template takes inspiration_summary.
	if len(result.Requests) < 3 {
		t.Fatalf("expected at least 3 requests, got %d", len(result.Requests))
	}
	system := result.Requests[2].Messages[0].Content
	if !strings.Contains(system, "灵感汇总：被遗忘的信") || !strings.Contains(system, "项目立项单：镜中人") {
		t.Errorf("theme prompt did not receive earlier outputs: %q", system)
	}
	user := result.Requests[2].Messages[1].Content
	if !strings.Contains(user, "【inspiration_summary】:\n被遗忘的信") {
		t.Errorf("unexpected user message: %q", user)
	}
}

func TestDuoziduofuSkipsOptionalSteps(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	script := llmctesting.Script{
		Skip: map[string]bool{"market": true, "system": true},
	}
	result, err := runner.Run(builtin(t, "duoziduofu"), script, 30*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	llmctesting.NewAssertions(t, result).
		Completed().
		RequestCount(6).
		StepSkipped("market").
		StepSkipped("system").
		ContextLacks("market_output").
		ContextHasValue("framework_output", "Result for framework").
		ContextHasValue("stage_result", "stage_result from framework").
		ProjectTitle("多子多福流程 - 2026-01-02")
}

func TestFanficWorkflow(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	script := llmctesting.Script{
		Values: map[string]string{"concept": "邻居都是异世界来客"},
	}
	result, err := runner.Run(builtin(t, "fanfic-generator"), script, 30*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	llmctesting.NewAssertions(t, result).
		Completed().
		RequestCount(4).
		StepUsedTemplate("characters", "general-characters").
		ContextHasValue("concept", "邻居都是异世界来客").
		ContextHasValue("outline_output", "Result for outline").
		DurationLessThan(10 * time.Second)

	// The concept placeholder is filled from the form.
	first := result.Requests[0].Messages
	if !strings.Contains(first[len(first)-1].Content, "邻居都是异世界来客") {
		t.Errorf("concept not resolved in first prompt: %q", first[len(first)-1].Content)
	}
}

func TestDarkDuoziduofuMatchesParentCategory(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	result, err := runner.Run(builtin(t, "dark-duoziduofu"), llmctesting.Script{}, 30*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	llmctesting.NewAssertions(t, result).
		Completed().
		RequestCount(5).
		ContextHasValue("micro_output", "Result for micro")
}

// TestAllFixtures runs every valid fixture workflow to completion
func TestAllFixtures(t *testing.T) {
	runner, err := llmctesting.NewTestRunner(t)
	if err != nil {
		t.Fatalf("failed to create test runner: %v", err)
	}

	fixtures, err := runner.ListFixtures()
	if err != nil {
		t.Fatalf("failed to list fixtures: %v", err)
	}

	if len(fixtures) == 0 {
		t.Fatal("no fixtures found")
	}

	for _, fixture := range fixtures {
		// Skip unknown_step as it's designed to fail
		if fixture.Name == "unknown_step" {
			if _, err := runner.LoadFixture(fixture); err == nil {
				t.Errorf("fixture %s should not load", fixture.Name)
			}
			continue
		}

		t.Run(fixture.Name, func(t *testing.T) {
			defs, err := runner.LoadFixture(fixture)
			if err != nil {
				t.Fatalf("LoadFixture failed for %s: %v", fixture.Name, err)
			}
			for _, def := range defs {
				result, err := runner.Run(def, llmctesting.Script{}, 30*time.Second)
				if err != nil {
					t.Fatalf("Run failed for %s/%s: %v", fixture.Name, def.ID, err)
				}
				llmctesting.NewAssertions(t, result).Completed()
			}
		})
	}
}
