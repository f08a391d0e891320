// Package doctor runs health checks against a huddle setup: configuration,
// the room store and leftovers in the rooms directory.
package doctor

import (
	"context"
	"fmt"
)

// Status is the outcome of a single check item. Higher is worse.
type Status uint8

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

var statusNames = [...]string{StatusPass: "pass", StatusWarn: "warn", StatusFail: "fail"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckItem is one line of a check result.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the items reported by one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

func (r *Result) add(label string, status Status, detail string) {
	r.Items = append(r.Items, CheckItem{Label: label, Status: status, Detail: detail})
}

// Worst returns the most severe status among the items.
func (r Result) Worst() Status {
	worst := StatusPass
	for _, item := range r.Items {
		worst = max(worst, item.Status)
	}
	return worst
}

type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order. Once ctx is done the remaining checks are
// reported as failed without running.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			skipped := Result{Name: check.Name()}
			skipped.add("skipped", StatusFail, err.Error())
			results = append(results, skipped)
			continue
		}
		results = append(results, check.Run(ctx))
	}
	return results
}

// Counts tallies items across results.
type Counts struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"fixable"`
}

// Healthy reports whether no item failed.
func (c Counts) Healthy() bool { return c.Failed == 0 }

// Tally counts items by status. Fixable counts unresolved items that --fix
// would address.
func Tally(results []Result) Counts {
	var c Counts
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				c.Passed++
			case StatusWarn:
				c.Warned++
			default:
				c.Failed++
			}
			if item.Fixable && item.Status != StatusPass {
				c.Fixable++
			}
		}
	}
	return c
}
