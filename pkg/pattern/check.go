package pattern

import (
	"regexp"
	"strings"

	"github.com/go-errors/errors"
)

// Line is one corpus log line as seen by the verifier.
type Line struct {
	LineID  string
	Content string
}

// CheckResult holds the outcome of verifying one pattern against a corpus.
// It is computed fresh on every call and never cached.
type CheckResult struct {
	AllMatch        bool
	TotalCount      int
	MatchCount      int
	MismatchCount   int
	MatchRate       float64
	MismatchSamples []Line
	Pattern         string
	UsedRegex       bool
}

// Check evaluates a pattern against every line of the corpus. A pattern
// containing a placeholder is auto-converted to a greedy-wildcard regex;
// otherwise the check is plain substring containment unless isRegex forces
// regex interpretation. Up to maxMismatch mismatching lines are retained.
func Check(lines []Line, pat string, isRegex bool, maxMismatch int) (CheckResult, error) {
	result := CheckResult{Pattern: pat}

	if HasPlaceholder(pat) && !isRegex {
		pat = ToRegex(pat, WildcardAny)
		isRegex = true
	}
	result.UsedRegex = isRegex

	var re *regexp.Regexp
	if isRegex {
		var err error
		re, err = regexp.Compile(pat)
		if err != nil {
			return CheckResult{}, errors.Errorf("compile check pattern: %w", err)
		}
	}

	for _, line := range lines {
		result.TotalCount++
		var matched bool
		if isRegex {
			matched = re.MatchString(line.Content)
		} else {
			matched = strings.Contains(line.Content, pat)
		}
		if matched {
			result.MatchCount++
			continue
		}
		if len(result.MismatchSamples) < maxMismatch {
			result.MismatchSamples = append(result.MismatchSamples, line)
		}
	}

	result.MismatchCount = result.TotalCount - result.MatchCount
	result.AllMatch = result.MismatchCount == 0
	if result.TotalCount > 0 {
		result.MatchRate = float64(result.MatchCount) / float64(result.TotalCount)
	}
	return result, nil
}

// DualSamples holds example lines for each of the four outcome combinations
// of a dual-pattern pass.
type DualSamples struct {
	NewMatch    []Line
	NewMismatch []Line
	OldMatch    []Line
	OldMismatch []Line
}

// DualCheckResult compares a proposed pattern against the original one over
// a single corpus pass. It is the evidence bundle consumed by split
// detection.
type DualCheckResult struct {
	TotalCount       int
	NewMatchCount    int
	NewMismatchCount int
	OldMatchCount    int
	OldMismatchCount int
	NewMatchRate     float64
	OldMatchRate     float64
	Samples          DualSamples
}

// CheckDual evaluates the new and old patterns simultaneously, capturing up
// to sampleCount example lines per combination.
func CheckDual(lines []Line, newPat, oldPat string, sampleCount int) (DualCheckResult, error) {
	newRe, err := compileLoose(newPat)
	if err != nil {
		return DualCheckResult{}, errors.Errorf("compile new pattern: %w", err)
	}
	oldRe, err := compileLoose(oldPat)
	if err != nil {
		return DualCheckResult{}, errors.Errorf("compile old pattern: %w", err)
	}

	var result DualCheckResult
	for _, line := range lines {
		result.TotalCount++
		newMatched := newRe.MatchString(line.Content)
		oldMatched := oldRe.MatchString(line.Content)

		if newMatched {
			result.NewMatchCount++
			if len(result.Samples.NewMatch) < sampleCount {
				result.Samples.NewMatch = append(result.Samples.NewMatch, line)
			}
		} else if len(result.Samples.NewMismatch) < sampleCount {
			result.Samples.NewMismatch = append(result.Samples.NewMismatch, line)
		}
		if oldMatched {
			result.OldMatchCount++
			if len(result.Samples.OldMatch) < sampleCount {
				result.Samples.OldMatch = append(result.Samples.OldMatch, line)
			}
		} else if len(result.Samples.OldMismatch) < sampleCount {
			result.Samples.OldMismatch = append(result.Samples.OldMismatch, line)
		}
	}

	result.NewMismatchCount = result.TotalCount - result.NewMatchCount
	result.OldMismatchCount = result.TotalCount - result.OldMatchCount
	if result.TotalCount > 0 {
		result.NewMatchRate = float64(result.NewMatchCount) / float64(result.TotalCount)
		result.OldMatchRate = float64(result.OldMatchCount) / float64(result.TotalCount)
	}
	return result, nil
}

// compileLoose converts a pattern with placeholders to a greedy-wildcard
// regex, or escapes it as a literal otherwise, then compiles it.
func compileLoose(pat string) (*regexp.Regexp, error) {
	if HasPlaceholder(pat) {
		return regexp.Compile(ToRegex(pat, WildcardAny))
	}
	return regexp.Compile(regexp.QuoteMeta(pat))
}
