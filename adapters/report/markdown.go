package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gormi/internal/analysis"
	"gormi/internal/compare"
)

// Alpha is the significance level used to mark violations in reports.
const Alpha = 0.05

// Markdown renders a report as a Markdown document.
func Markdown(r *analysis.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Race model inequality: %s\n\n", r.ID)
	fmt.Fprintf(&b, "- Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if r.Condition != "" {
		fmt.Fprintf(&b, "- Condition: %s\n", r.Condition)
	}
	fmt.Fprintf(&b, "- Channels: %s + %s vs %s\n", r.Design.ChannelA, r.Design.ChannelB, r.Design.Redundant)
	fmt.Fprintf(&b, "- Subjects: %d (%d low confidence)\n", len(r.Subjects), r.LowConfidenceCount())
	fmt.Fprintf(&b, "- Percentile levels: %d\n\n", len(r.Grid))

	b.WriteString("## Group\n\n")
	b.WriteString("| Level | Redundant | Bound | Difference | Violated | t | p (t) | W | p (W) |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for i, v := range r.Group.Violations {
		var lr *compare.LevelResult
		if r.Comparison != nil && i < len(r.Comparison.Results) {
			lr = &r.Comparison.Results[i]
		}
		t, pt, w, pw := "", "", "", ""
		if lr != nil && lr.TTest != nil {
			t, pt = fixed(lr.TTest.Statistic, 3), fixed(lr.TTest.PValue, 4)
		}
		if lr != nil && lr.Wilcoxon != nil {
			w, pw = fixed(lr.Wilcoxon.Statistic, 1), fixed(lr.Wilcoxon.PValue, 4)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			fixed(v.Level, 2), fixed(v.Redundant, 1), fixed(v.Bound, 1), fixed(v.Difference, 1),
			yesNo(v.Violated), t, pt, w, pw)
	}
	b.WriteString("\n")

	if r.Comparison == nil {
		b.WriteString("Level-wise tests were skipped: fewer than two subjects.\n\n")
	} else {
		fmt.Fprintf(&b, "Alternative: %s. ", r.Comparison.Alternative)
		levels := r.ViolatedLevels(Alpha)
		if len(levels) == 0 {
			fmt.Fprintf(&b, "No significant violation at alpha = %s.\n\n", fixed(Alpha, 2))
		} else {
			parts := make([]string, len(levels))
			for i, p := range levels {
				parts[i] = fixed(p, 2)
			}
			fmt.Fprintf(&b, "Significant violations at alpha = %s: **%s**.\n\n", fixed(Alpha, 2), strings.Join(parts, ", "))
		}
	}

	b.WriteString("## Subjects\n\n")
	d := r.Design
	fmt.Fprintf(&b, "| Subject | n %s | n %s | n %s | mean %s | mean %s | mean %s | Violated levels | Low confidence |\n",
		d.ChannelA, d.ChannelB, d.Redundant, d.ChannelA, d.ChannelB, d.Redundant)
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range r.Subjects {
		violated := 0
		for _, v := range s.Violations {
			if v.Violated {
				violated++
			}
		}
		a, bb, ab := s.Summaries[d.ChannelA], s.Summaries[d.ChannelB], s.Summaries[d.Redundant]
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %s | %s | %s | %d | %s |\n",
			s.Subject, a.N, bb.N, ab.N, fixed(a.Mean, 1), fixed(bb.Mean, 1), fixed(ab.Mean, 1), violated, yesNo(s.LowConfidence))
	}
	return b.String()
}

// HTML renders the Markdown report as a complete HTML page.
func HTML(r *analysis.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Race model inequality " + r.ID.String(),
	})
	return markdown.ToHTML([]byte(Markdown(r)), p, renderer)
}

func fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
