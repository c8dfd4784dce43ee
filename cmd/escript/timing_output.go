package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"escript/internal/buildpipeline"
)

var timingLines = []struct {
	label  string
	stages []buildpipeline.Stage
}{
	{"loaded", []buildpipeline.Stage{buildpipeline.StageLoad}},
	{"lexed", []buildpipeline.Stage{buildpipeline.StageLex}},
	{"compiled", []buildpipeline.Stage{buildpipeline.StageCompile, buildpipeline.StageAssemble}},
	{"image", []buildpipeline.Stage{buildpipeline.StageImage}},
	{"ran", []buildpipeline.Stage{buildpipeline.StageRun}},
}

// printStageTimings writes one line per recorded stage group. Per-file
// stages are summed.
func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	for _, line := range timingLines {
		recorded := false
		for _, s := range line.stages {
			recorded = recorded || timings.Has(s)
		}
		if recorded {
			fmt.Fprintf(out, "%s %.1f ms\n", line.label, toMillis(timings.Sum(line.stages...)))
		}
	}
}

// printTimings honours --timings: the stage summary followed by the phase
// table of the driver timer.
func printTimings(cmd *cobra.Command, out io.Writer, timings buildpipeline.Timings) {
	if on, _ := cmd.Root().PersistentFlags().GetBool("timings"); !on {
		return
	}
	printStageTimings(out, timings)
	if current.timer != nil {
		fmt.Fprint(out, current.timer.Summary())
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
