package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultTempGrace = time.Minute

// StaleFilesCheck looks for leftovers of the jsonfile store: temp documents
// from interrupted writes and lock files whose room document is gone. With
// fix set they are removed.
type StaleFilesCheck struct {
	dir   string
	fix   bool
	grace time.Duration
	now   func() time.Time
}

func NewStaleFilesCheck(roomsDir string, fix bool) *StaleFilesCheck {
	return &StaleFilesCheck{dir: roomsDir, fix: fix, grace: defaultTempGrace, now: time.Now}
}

func (c *StaleFilesCheck) Name() string { return "Rooms Directory" }

func (c *StaleFilesCheck) Run(context.Context) Result {
	result := Result{Name: c.Name()}

	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		result.add("rooms", StatusPass, "no rooms directory yet")
		return result
	}
	if err != nil {
		result.add("rooms", StatusFail, err.Error())
		return result
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	rooms := 0
	var stale []staleFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}

		switch {
		case strings.HasSuffix(name, ".json.tmp"):
			// A temp file younger than the grace period is likely a write
			// in progress.
			info, err := e.Info()
			if err != nil || c.now().Sub(info.ModTime()) < c.grace {
				continue
			}
			stale = append(stale, staleFile{name, "interrupted write"})
		case strings.HasSuffix(name, ".json.lock"):
			if !present[strings.TrimSuffix(name, ".lock")] {
				stale = append(stale, staleFile{name, "lock without room document"})
			}
		case strings.HasSuffix(name, ".json"):
			rooms++
		}
	}

	if len(stale) == 0 {
		result.add("rooms", StatusPass, fmt.Sprintf("%d room documents, no stale files", rooms))
		return result
	}

	for _, f := range stale {
		if !c.fix {
			result.Items = append(result.Items, CheckItem{
				Label:   f.name,
				Status:  StatusWarn,
				Detail:  f.reason,
				Fixable: true,
			})
			continue
		}

		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil && !os.IsNotExist(err) {
			result.add(f.name, StatusFail, fmt.Sprintf("remove failed: %v", err))
			continue
		}
		result.add(f.name, StatusPass, "removed ("+f.reason+")")
	}

	return result
}

type staleFile struct {
	name   string
	reason string
}
