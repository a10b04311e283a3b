// Package grouper detects suspected mixed events by clustering corpus lines
// on parameter length. A wide gap between two length clusters is the cheap
// signal that one template is covering two distinct log shapes.
package grouper

import (
	"sort"

	"github.com/strrl/logmend/pkg/corpus"
	"github.com/strrl/logmend/pkg/pattern"
)

// Group is one length cluster of sampled lines.
type Group struct {
	MinLength int
	MaxLength int
	AvgLength float64
	Count     int
	// Typical holds representative lines drawn at fixed ranks across the
	// group, shortest to longest.
	Typical []pattern.Line
}

// Analysis is the outcome of length clustering over a sampled corpus.
type Analysis struct {
	Groups      []Group
	Gap         int
	MaxLength   int
	SampleCount int
}

type measured struct {
	line   pattern.Line
	length int
}

// Analyze samples the corpus at a fixed stride, measures each line's
// parameter length against the template, and splits the sample at the
// widest gap in the distinct-length sequence.
func Analyze(lines []pattern.Line, template string, sampleCount int) Analysis {
	sampled := corpus.UniformSample(lines, sampleCount)
	litLen := pattern.LiteralLength(template)

	ms := make([]measured, len(sampled))
	for i, l := range sampled {
		length := len(l.Content) - litLen
		if length < 0 {
			length = 0
		}
		ms[i] = measured{line: l, length: length}
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].length < ms[j].length })

	analysis := Analysis{SampleCount: len(ms)}
	if len(ms) == 0 {
		return analysis
	}
	analysis.MaxLength = ms[len(ms)-1].length

	distinct := distinctLengths(ms)
	if len(distinct) <= 1 {
		analysis.Groups = []Group{makeGroup(ms)}
		return analysis
	}

	// Widest gap between consecutive distinct lengths decides the cut.
	gap, low := 0, distinct[0]
	for i := 1; i < len(distinct); i++ {
		if d := distinct[i] - distinct[i-1]; d > gap {
			gap = d
			low = distinct[i-1]
		}
	}
	analysis.Gap = gap
	threshold := float64(low) + float64(gap)/2

	var short, long []measured
	for _, m := range ms {
		if float64(m.length) <= threshold {
			short = append(short, m)
		} else {
			long = append(long, m)
		}
	}
	analysis.Groups = []Group{makeGroup(short), makeGroup(long)}
	return analysis
}

// ShouldConsultOracle reports whether the clustering evidence is strong
// enough to spend an oracle call on a split decision. A single group, or a
// gap that is small both absolutely and relative to the longest parameter,
// is dismissed as ordinary variation.
func (a Analysis) ShouldConsultOracle(gapAbsolute int, gapRelative float64) bool {
	if len(a.Groups) <= 1 {
		return false
	}
	if a.Gap >= gapAbsolute {
		return true
	}
	if a.MaxLength > 0 && float64(a.Gap)/float64(a.MaxLength) >= gapRelative {
		return true
	}
	return false
}

func distinctLengths(ms []measured) []int {
	var out []int
	for _, m := range ms {
		if len(out) == 0 || out[len(out)-1] != m.length {
			out = append(out, m.length)
		}
	}
	return out
}

// makeGroup builds a group from length-sorted lines, picking typical
// samples at the ends, quartiles and midpoint.
func makeGroup(ms []measured) Group {
	g := Group{Count: len(ms)}
	if len(ms) == 0 {
		return g
	}
	g.MinLength = ms[0].length
	g.MaxLength = ms[len(ms)-1].length
	sum := 0
	for _, m := range ms {
		sum += m.length
	}
	g.AvgLength = float64(sum) / float64(len(ms))

	n := len(ms)
	seen := map[int]bool{}
	for _, rank := range []int{0, n / 4, n / 2, 3 * n / 4, n - 1} {
		if seen[rank] {
			continue
		}
		seen[rank] = true
		g.Typical = append(g.Typical, ms[rank].line)
	}
	return g
}
