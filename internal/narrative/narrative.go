// Package narrative holds the demo's explanatory copy.
package narrative

import (
	"fmt"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"phackdemo/domain/demo"
	"phackdemo/domain/trial"
)

const intro = `Imagine you're testing whether a new supplement improves test scores.
Participants are randomly assigned to the supplement (Group A) or a placebo (Group B).
A result counts as "statistically significant" when p < 0.05.`

const ready = `Run the analysis. If p < 0.05 you can publish. If not, don't worry:
you can always try a different approach to the analysis.`

// Explanation is the "learn more" page, in markdown
const Explanation = `# The Severity of P-Hacking

**What is p-hacking?** Manipulating data analysis until patterns appear statistically
significant, even when no real effect exists.

**Common p-hacking techniques include:**

- Collecting data until you get a significant result ("optional stopping")
- Analyzing many different variables but only reporting the significant ones
- Trying multiple statistical tests and only reporting those that "work"
- Excluding "outliers" that contradict your hypothesis
- Slicing data in different ways until you find significance

**Why is this dangerous?**

- It fills the literature with false positive results
- It leads to failed replications and wasted research resources
- It can inform harmful policies or medical interventions
- It erodes public trust in science

**Solutions include:**

- Pre-registration of study designs and analysis plans
- Publishing null results
- Requiring replication before accepting results
- Using stricter statistical thresholds
- Focusing on effect sizes rather than just p-values

A single p-value below 0.05 is never definitive proof. With enough attempts you will
eventually find "significance" in completely random data.
`

// PhaseMessage returns the copy shown for a wizard phase
func PhaseMessage(phase demo.Phase, summary trial.Summary) string {
	switch phase {
	case demo.PhaseIntro:
		return intro
	case demo.PhaseReady:
		return ready
	case demo.PhaseRunning:
		return fmt.Sprintf("Analysis in progress... %d of %d trials, %d significant.",
			summary.TrialsCompleted, summary.Cap, summary.SignificantCount)
	case demo.PhaseRealityCheck:
		return RealityCheck(summary)
	case demo.PhaseExplanation:
		return Explanation
	}
	return ""
}

// RealityCheck reveals that every significant result was spurious
func RealityCheck(summary trial.Summary) string {
	return fmt.Sprintf(`You found %d "statistically significant" results out of %d trials.
But all of the data was random: there was no real difference between the groups.
Every one of those findings is a false positive (%.1f%% of trials). Running analyses
until something crosses p < 0.05 and reporting only that result is p-hacking.`,
		summary.SignificantCount, summary.TrialsCompleted, 100*summary.FalsePositiveRate())
}

// RenderHTML converts markdown copy to HTML
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
