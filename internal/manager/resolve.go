// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"os"
	"sync"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
)

// StatFunc reports filesystem info for a path (testing hook).
type StatFunc func(name string) (os.FileInfo, error)

// firstExisting probes candidate paths concurrently and returns the first
// existing path in declaration order. Priority order matters more than
// completion latency: a later candidate finishing first never wins over an
// earlier one that also exists.
func firstExisting(ctx context.Context, candidates []string, stat StatFunc) (string, bool) {
	if stat == nil {
		stat = os.Stat
	}

	exists := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, path := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if _, err := stat(path); err == nil {
				exists[i] = true
			}
		}()
	}
	wg.Wait()

	for i, ok := range exists {
		if ok {
			return candidates[i], true
		}
	}
	return "", false
}

// resolveExecutable locates a manager tool, preferring in order: the
// user-configured override (which must exist — a configured-but-absent path
// fails fast naming exactly that path), fixed installation candidates, and
// finally an ambient PATH lookup.
func (h *Host) resolveExecutable(ctx context.Context, id config.ManagerID, tool string, candidates []string) (string, error) {
	if configured, ok := h.Config.ManagerPath(id); ok {
		expanded := h.ExpandHome(configured)
		if _, err := os.Stat(expanded); err != nil {
			return "", &activation.NotFoundError{Tool: tool, Searched: []string{expanded}}
		}
		return expanded, nil
	}

	if path, ok := firstExisting(ctx, candidates, nil); ok {
		return path, nil
	}

	if path, err := h.lookPath(tool); err == nil {
		return path, nil
	}

	searched := append(append([]string(nil), candidates...), "$PATH:"+tool)
	return "", &activation.NotFoundError{Tool: tool, Searched: searched}
}

// detectExecutable is the pre-flight twin of resolveExecutable: same
// priority order, but it reports a DetectionResult instead of failing.
func (h *Host) detectExecutable(ctx context.Context, id config.ManagerID, tool string, candidates []string) DetectionResult {
	if configured, ok := h.Config.ManagerPath(id); ok {
		expanded := h.ExpandHome(configured)
		if _, err := os.Stat(expanded); err == nil {
			return DetectedAt(expanded)
		}
		return DetectedNone()
	}
	if path, ok := firstExisting(ctx, candidates, nil); ok {
		return DetectedAt(path)
	}
	if _, err := h.lookPath(tool); err == nil {
		return DetectedSemantic(tool)
	}
	return DetectedNone()
}
