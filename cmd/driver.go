package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/DomeenoH/MuMuAINovel/internal/wizard"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// Commands understood at any prompt of the terminal driver.
const (
	cmdBack   = ":back"
	cmdSkip   = ":skip"
	cmdRetry  = ":retry"
	cmdChange = ":change"
)

var errInputClosed = errors.New("input closed before the workflow finished")

// driver walks an executor from line-oriented input. Each field or
// variable takes one line; an empty line keeps the current value.
type driver struct {
	e   *wizard.Executor
	in  *bufio.Scanner
	out io.Writer
}

func newDriver(e *wizard.Executor, in io.Reader, out io.Writer) *driver {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &driver{e: e, in: sc, out: out}
}

func (d *driver) run(ctx context.Context) error {
	if err := d.e.Start(ctx); err != nil {
		d.report(err)
	}
	for !d.e.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := d.e.State()
		d.header(st)

		var err error
		switch st.Phase {
		case wizard.PhaseFillForm:
			err = d.form(ctx, st)
		case wizard.PhaseSelectTemplate:
			err = d.selectTemplate(ctx, st)
		case wizard.PhaseFillVariables:
			err = d.fillVariables(ctx, st)
		case wizard.PhaseShowResult:
			err = d.review(ctx)
		default:
			return fmt.Errorf("unexpected phase %s", st.Phase)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) readLine(prompt string) (string, error) {
	fmt.Fprint(d.out, prompt)
	if !d.in.Scan() {
		if err := d.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(d.in.Text()), nil
}

// report prints an error returned by the executor. None of them end the
// session.
func (d *driver) report(err error) {
	if err == nil {
		return
	}
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(d.out, "⚠️  Please fill in: %s\n", strings.Join(verr.Missing, ", "))
		return
	}
	fmt.Fprintf(d.out, "❌ %v\n", err)
}

func (d *driver) header(st wizard.State) {
	h := st.Step.Header()
	opt := ""
	if h.Optional {
		opt = " (optional, :skip to skip)"
	}
	fmt.Fprintf(d.out, "\n🧩 [%d/%d] %s · %s%s\n", st.Index+1, d.e.Definition().Len(), h.Name, st.Phase, opt)
	if h.Description != "" {
		fmt.Fprintf(d.out, "   %s\n", h.Description)
	}
}

// navigate handles the commands shared by every phase. It reports whether
// line was one of them.
func (d *driver) navigate(ctx context.Context, line string) bool {
	switch line {
	case cmdBack:
		d.report(d.e.Back(ctx))
	case cmdSkip:
		d.report(d.e.Skip(ctx))
	default:
		return false
	}
	return true
}

func (d *driver) form(ctx context.Context, st wizard.State) error {
	step := st.Step.(workflow.FormStep)
	for _, f := range step.Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		if len(f.Options) > 0 {
			label += " (" + strings.Join(f.Options, "/") + ")"
		}
		if cur := st.Values[f.Name]; cur != "" {
			label += " [" + preview(cur) + "]"
		}

		line, err := d.readLine(label + ": ")
		if err != nil {
			return err
		}
		if d.navigate(ctx, line) {
			return nil
		}
		if line == "" {
			continue
		}
		if err := d.e.SetValue(f.Name, line); err != nil {
			d.report(err)
			return nil
		}
	}
	d.report(d.e.SubmitForm(ctx))
	return nil
}

func (d *driver) selectTemplate(ctx context.Context, st wizard.State) error {
	switch {
	case st.CandidatesErr != nil:
		fmt.Fprintf(d.out, "❌ Loading templates failed: %v (%s to try again)\n", st.CandidatesErr, cmdRetry)
	case len(st.Candidates) == 0:
		fmt.Fprintln(d.out, "No matching templates.")
	}
	for i, c := range st.Candidates {
		fmt.Fprintf(d.out, "  %2d) %s\n", i+1, c.Name)
		if c.Description != "" {
			fmt.Fprintf(d.out, "      %s\n", preview(c.Description))
		}
	}

	line, err := d.readLine("Template number: ")
	if err != nil {
		return err
	}
	if d.navigate(ctx, line) {
		return nil
	}
	if line == cmdRetry {
		d.report(d.e.LoadCandidates(ctx))
		return nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(st.Candidates) {
		fmt.Fprintf(d.out, "⚠️  Enter a number between 1 and %d.\n", len(st.Candidates))
		return nil
	}
	d.report(d.e.SelectTemplate(ctx, st.Candidates[n-1].ID))
	return nil
}

func (d *driver) fillVariables(ctx context.Context, st wizard.State) error {
	fmt.Fprintf(d.out, "📄 %s (%s for another template)\n", st.Template.Name, cmdChange)
	for _, v := range st.Inputs {
		label := v.DisplayName
		if cur := st.Values[v.Name]; cur != "" {
			label += " [" + preview(cur) + "]"
		}

		line, err := d.readLine(label + ": ")
		if err != nil {
			return err
		}
		if line == cmdChange {
			d.report(d.e.ChangeTemplate())
			return nil
		}
		if d.navigate(ctx, line) {
			return nil
		}
		if line == "" {
			continue
		}
		if err := d.e.SetValue(v.Name, line); err != nil {
			d.report(err)
			return nil
		}
	}

	fmt.Fprintln(d.out, "⏳ Generating...")
	err := d.e.Execute(ctx)
	fmt.Fprintln(d.out)
	d.report(err)
	return nil
}

func (d *driver) review(ctx context.Context) error {
	line, err := d.readLine("Accept this result? [Y/n] ")
	if err != nil {
		return err
	}
	if d.navigate(ctx, line) {
		return nil
	}
	switch strings.ToLower(line) {
	case "", "y", "yes":
		d.report(d.e.Commit(ctx))
	case "n", "no":
		d.report(d.e.Redo())
	default:
		fmt.Fprintln(d.out, "⚠️  Answer y or n.")
	}
	return nil
}

func (d *driver) summary() {
	st := d.e.State()
	fmt.Fprintf(d.out, "\n✅ Workflow %q finished\n", d.e.Definition().Name)
	if st.ProjectID != "" {
		fmt.Fprintf(d.out, "📦 Project created: %s\n", st.ProjectID)
	}
	vars := d.e.Context()
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		fmt.Fprintf(d.out, "   %s: %s\n", k, preview(vars[k]))
	}
}

// preview shortens s to one line of at most 40 characters.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:40]) + "…"
	}
	return s
}
