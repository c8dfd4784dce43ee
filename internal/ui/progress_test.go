package ui

import (
	"strings"
	"testing"

	"escript/internal/buildpipeline"
)

func newModel(files ...string) *progressModel {
	return NewProgressModel("building", files, nil).(*progressModel)
}

func TestApplyEvent(t *testing.T) {
	m := newModel("a.es", "b.esasm")
	steps := []struct {
		ev     buildpipeline.Event
		status []string
		pct    float64
	}{
		{buildpipeline.Event{File: "a.es", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusWorking}, []string{"loading", "queued"}, 0.05},
		{buildpipeline.Event{File: "a.es", Stage: buildpipeline.StageLex, Status: buildpipeline.StatusDone}, []string{"lexed", "queued"}, 0.15},
		{buildpipeline.Event{File: "a.es", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusDone}, []string{"done", "queued"}, 0.5},
		{buildpipeline.Event{File: "b.esasm", Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusWorking}, []string{"done", "assembling"}, 0.8},
		{buildpipeline.Event{File: "b.esasm", Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusError}, []string{"done", "error"}, 1},
	}
	for i, step := range steps {
		m.applyEvent(step.ev)
		for j, want := range step.status {
			if got := m.items[j].status; got != want {
				t.Fatalf("step %d: item %d status = %q, want %q", i, j, got, want)
			}
		}
		if got := m.percent(); got < step.pct-1e-9 || got > step.pct+1e-9 {
			t.Fatalf("step %d: percent = %v, want %v", i, got, step.pct)
		}
	}
}

func TestFinalStatusSticks(t *testing.T) {
	m := newModel("a.es")
	m.applyEvent(buildpipeline.Event{File: "a.es", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusCached})
	m.applyEvent(buildpipeline.Event{File: "a.es", Stage: buildpipeline.StageLex, Status: buildpipeline.StatusWorking})
	if m.items[0].status != "cached" || m.percent() != 1 {
		t.Fatalf("status = %q, percent = %v", m.items[0].status, m.percent())
	}
}

func TestUnknownFileSetsHeader(t *testing.T) {
	m := newModel("a.es")
	m.applyEvent(buildpipeline.Event{File: "a.esi", Stage: buildpipeline.StageImage, Status: buildpipeline.StatusWorking})
	if m.stageLabel != "writing" {
		t.Fatalf("stageLabel = %q", m.stageLabel)
	}
	view := m.View()
	if !strings.Contains(view, "building (writing)") || !strings.Contains(view, "a.es") {
		t.Fatalf("view:\n%s", view)
	}
	m.Update(doneMsg{})
	if !strings.Contains(m.View(), "done: building") {
		t.Fatalf("view after done:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.es", 20, "short.es"},
		{"a/very/long/path/main.es", 10, "a/very/..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
