// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/procexec"
)

// Shadowenv activates through `shadowenv exec`, which applies the
// workspace's .shadowenv.d environment before running the probe. shadowenv
// refuses to load an untrusted tree; that refusal surfaces as a typed
// UntrustedWorkspace condition so the caller can offer to trust and retry.
type Shadowenv struct {
	h *Host
}

// NewShadowenv builds the shadowenv strategy.
func NewShadowenv(h *Host) *Shadowenv { return &Shadowenv{h: h} }

// ID implements Strategy.
func (s *Shadowenv) ID() config.ManagerID { return config.ManagerShadowenv }

// Detect reports applicability: shadowenv only matters for workspaces that
// carry a .shadowenv.d directory.
func (s *Shadowenv) Detect(ctx context.Context) DetectionResult {
	marker := filepath.Join(s.h.BundleRoot, ".shadowenv.d")
	if _, err := os.Stat(marker); err != nil {
		return DetectedNone()
	}
	if _, err := s.resolveBinary(ctx); err != nil {
		return DetectedNone()
	}
	return DetectedAt(marker)
}

// Activate implements Strategy.
func (s *Shadowenv) Activate(ctx context.Context) (*activation.Result, error) {
	shadowenv, err := s.resolveBinary(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.h.runProbe(ctx, []string{shadowenv, "exec", "--dir", s.h.BundleRoot, "--", "ruby"}, false)
	if err != nil {
		if stderrMentionsUntrusted(err) {
			return nil, &activation.UntrustedWorkspaceError{Dir: s.h.BundleRoot}
		}
		return nil, err
	}
	return res, nil
}

// Trust implements Truster: it grants shadowenv trust for the workspace so
// a retried activation can succeed.
func (s *Shadowenv) Trust(ctx context.Context) error {
	shadowenv, err := s.resolveBinary(ctx)
	if err != nil {
		return err
	}
	_, err = s.h.Runner.Run(ctx, procexec.Command{
		Path: shadowenv,
		Args: []string{"trust"},
		Dir:  s.h.BundleRoot,
	})
	return err
}

func (s *Shadowenv) resolveBinary(ctx context.Context) (string, error) {
	return s.h.resolveExecutable(ctx, config.ManagerShadowenv, "shadowenv", nil)
}
