package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"phackdemo/domain/demo"
	"phackdemo/domain/trial"
)

func TestRealityCheckReportsCounts(t *testing.T) {
	msg := RealityCheck(trial.Summary{Cap: 20, TrialsCompleted: 20, SignificantCount: 1})
	assert.Contains(t, msg, `found 1 "statistically significant" results out of 20 trials`)
	assert.Contains(t, msg, "5.0%")
}

func TestPhaseMessages(t *testing.T) {
	summary := trial.Summary{Cap: 20, TrialsCompleted: 3, SignificantCount: 0}
	for _, phase := range []demo.Phase{demo.PhaseIntro, demo.PhaseReady, demo.PhaseRunning, demo.PhaseRealityCheck, demo.PhaseExplanation} {
		assert.NotEmpty(t, PhaseMessage(phase, summary), phase)
	}
	assert.Contains(t, PhaseMessage(demo.PhaseRunning, summary), "3 of 20 trials")
	assert.Empty(t, PhaseMessage(demo.Phase("unknown"), summary))
}

func TestRenderHTML(t *testing.T) {
	out := string(RenderHTML(Explanation))
	assert.True(t, strings.Contains(out, "<h1"), out)
	assert.Contains(t, out, "<li>Publishing null results</li>")
	assert.Contains(t, out, "<strong>What is p-hacking?</strong>")
}
