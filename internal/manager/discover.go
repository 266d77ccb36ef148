// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rubyup/rubyup/internal/activation"
)

// VersionFileName is the per-directory marker pinning the runtime version.
const VersionFileName = ".ruby-version"

// versionPattern permissively parses a marker entry: an optional engine
// name, a dotted numeric triplet, and an optional pre-release suffix.
// "truffleruby-21.3.0" → (truffleruby, 21.3.0); "3.3.0" → ("", 3.3.0).
var versionPattern = regexp.MustCompile(`^(?:([a-zA-Z][a-zA-Z0-9_+]*)-)?(\d+\.\d+\.\d+(?:-[0-9a-zA-Z.]+)?)$`)

// gemfileLockRubyPattern matches the RUBY VERSION entry of a Gemfile.lock,
// e.g. "   ruby 3.2.2p53".
var gemfileLockRubyPattern = regexp.MustCompile(`(?m)^RUBY VERSION\n\s+ruby (\d+\.\d+\.\d+)`)

type (
	// VersionSpec is a parsed runtime pin.
	VersionSpec struct {
		// Engine is the implementation name ("truffleruby", "jruby");
		// empty for the default engine.
		Engine string
		// Version is the dotted version, possibly with a pre-release suffix.
		Version string
		// File is the marker file the spec came from; empty for specs that
		// came from a fallback choice.
		File string
	}

	// InstalledRuby is one runtime found in a known installation directory.
	InstalledRuby struct {
		Engine  string
		Version string
		// Path is the installation root (e.g. ~/.rubies/ruby-3.3.4).
		Path string
	}

	// FallbackChoiceKind tags a FallbackChoice.
	FallbackChoiceKind int

	// FallbackChoice is a human response to the fallback offer.
	FallbackChoice struct {
		Kind FallbackChoiceKind
		// PersistDir is set for FallbackPersist: the directory the chosen
		// version should be written to.
		PersistDir string
		// Selected is set for FallbackManual.
		Selected InstalledRuby
	}
)

// Fallback choice kinds.
const (
	// FallbackCancel declines the offer without an alternative.
	FallbackCancel FallbackChoiceKind = iota
	// FallbackPersist writes a durable marker file and restarts activation.
	FallbackPersist
	// FallbackManual selects a runtime for this session only.
	FallbackManual
)

// String renders the spec in marker-file form.
func (s VersionSpec) String() string {
	if s.Engine == "" {
		return s.Version
	}
	return s.Engine + "-" + s.Version
}

// ParseVersionSpec parses one marker entry.
func ParseVersionSpec(entry string) (VersionSpec, bool) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(entry))
	if m == nil {
		return VersionSpec{}, false
	}
	return VersionSpec{Engine: m[1], Version: m[2]}, true
}

// FindVersionFile walks upward from startDir to the filesystem root looking
// for the version marker. A marker that exists but is empty or unparsable
// fails immediately — an explicit misconfiguration must not be silently
// skipped. Absence at every level returns (nil, nil).
func FindVersionFile(startDir string) (*VersionSpec, error) {
	dir := filepath.Clean(startDir)
	for {
		path := filepath.Join(dir, VersionFileName)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			spec, ok := ParseVersionSpec(string(data))
			if !ok {
				return nil, &activation.VersionFileError{Path: path, Entry: strings.TrimSpace(string(data))}
			}
			spec.File = path
			return &spec, nil
		case os.IsNotExist(err):
			// keep walking
		default:
			return nil, fmt.Errorf("reading version file %s: %w", path, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// WriteVersionFile durably persists a version choice. This is the only
// filesystem mutation the activation subsystem performs.
func WriteVersionFile(dir string, spec VersionSpec) error {
	path := filepath.Join(dir, VersionFileName)
	if err := os.WriteFile(path, []byte(spec.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("persisting version file %s: %w", path, err)
	}
	return nil
}

// GemfileLockRubyVersion reports the runtime version pinned by the bundle
// root's dependency lockfile, if any.
func GemfileLockRubyVersion(bundleRoot string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(bundleRoot, "Gemfile.lock"))
	if err != nil {
		return "", false
	}
	m := gemfileLockRubyPattern.FindSubmatch(data)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// rubyInstallDirs are the known installation roots scanned for fallback
// candidates and by the chruby strategy, in priority order.
func rubyInstallDirs(home string) []string {
	dirs := []string{"/opt/rubies"}
	if home != "" {
		dirs = append([]string{filepath.Join(home, ".rubies")}, dirs...)
	}
	return dirs
}

// ScanInstalledRubies lists runtimes installed under the given roots,
// newest version first.
func ScanInstalledRubies(dirs []string) []InstalledRuby {
	var found []InstalledRuby
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			spec, ok := ParseVersionSpec(entry.Name())
			if !ok {
				continue
			}
			found = append(found, InstalledRuby{
				Engine:  spec.Engine,
				Version: spec.Version,
				Path:    filepath.Join(dir, entry.Name()),
			})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return compareVersions(found[i].Version, found[j].Version) > 0
	})
	return found
}

// compareVersions orders dotted versions numerically, falling back to
// string order for non-numeric segments (pre-release suffixes sort before
// nothing, which is sufficient for picking "newest installed").
func compareVersions(a, b string) int {
	as := strings.FieldsFunc(a, func(r rune) bool { return r == '.' || r == '-' })
	bs := strings.FieldsFunc(b, func(r rune) bool { return r == '.' || r == '-' })
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := parseUint(as[i])
		bn, berr := parseUint(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				if an > bn {
					return 1
				}
				return -1
			}
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return len(as) - len(bs)
}

func parseUint(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not numeric")
		}
		n = n*10 + uint64(r-'0')
	}
	return n, nil
}

// AwaitFallback resolves a pending fallback offer: it returns the human's
// choice if one arrives before the timeout, or a timed-out marker choice
// (accept the offered runtime) when the window elapses. A cancelled context
// short-circuits the timer immediately so the human is never kept waiting
// out the remainder of the window.
//
// The returned bool reports whether the offer timed out (auto-accept).
func AwaitFallback(ctx context.Context, timeout time.Duration, choices <-chan FallbackChoice) (FallbackChoice, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case choice := <-choices:
		return choice, false, nil
	case <-timer.C:
		return FallbackChoice{}, true, nil
	case <-ctx.Done():
		return FallbackChoice{}, false, &activation.CancelledError{Reason: ctx.Err().Error()}
	}
}
