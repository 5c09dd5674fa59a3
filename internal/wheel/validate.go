package wheel

import (
	"fmt"
	"math"
	"strings"
)

// WeightSumTolerance is how far the sum of weights may drift from 1.0
// and still count as a full wheel.
const WeightSumTolerance = 1e-4

// IssueKind classifies a validation problem.
type IssueKind string

const (
	IssueEmptyTable        IssueKind = "empty_table"
	IssueWeightSumMismatch IssueKind = "weight_sum_mismatch"
	IssueWeightOutOfRange  IssueKind = "weight_out_of_range"
)

// Issue is one validation finding. ActualSum is set for IssueWeightSumMismatch,
// Index for IssueWeightOutOfRange.
type Issue struct {
	Kind      IssueKind
	ActualSum float64
	Index     int
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueWeightSumMismatch:
		return fmt.Sprintf("weights sum to %.6f, must sum to 1.0", i.ActualSum)
	case IssueWeightOutOfRange:
		return fmt.Sprintf("slice %d weight must be in [0,1]", i.Index)
	case IssueEmptyTable:
		return "wheel has no slices"
	default:
		return string(i.Kind)
	}
}

// ValidationResult is the outcome of Table.Validate.
type ValidationResult struct {
	Valid  bool
	Issues []Issue
}

// Has reports whether an issue of the given kind was found.
func (r ValidationResult) Has(kind IssueKind) bool {
	for _, is := range r.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

func (r ValidationResult) String() string {
	if r.Valid {
		return "valid"
	}
	parts := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}

func validateWeight(w float64) bool {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return false
	}
	return w >= 0 && w <= 1
}

// validateSlices checks the table invariants and returns the findings with the raw weight sum.
func validateSlices(slices []Slice) (ValidationResult, float64) {
	var issues []Issue
	if len(slices) == 0 {
		issues = append(issues, Issue{Kind: IssueEmptyTable})
	}

	var sum float64
	for i, s := range slices {
		if !validateWeight(s.Weight) {
			issues = append(issues, Issue{Kind: IssueWeightOutOfRange, Index: i})
			continue
		}
		sum += s.Weight
	}
	// an empty table sums to 0, which is reported as well
	if math.Abs(sum-1.0) > WeightSumTolerance {
		issues = append(issues, Issue{Kind: IssueWeightSumMismatch, ActualSum: sum})
	}

	return ValidationResult{Valid: len(issues) == 0, Issues: issues}, sum
}
