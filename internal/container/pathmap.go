// SPDX-License-Identifier: MPL-2.0

package container

import (
	"os"
	"sort"
	"strings"
)

type (
	// MountPair associates a local absolute path with its path inside the
	// remote execution context.
	MountPair struct {
		Local  string
		Remote string
	}

	// StatFunc reports filesystem info for a path (testing hook).
	StatFunc func(name string) (os.FileInfo, error)

	// PathConverter translates between local and remote paths over a fixed
	// mapping. It is built fresh on every activation and never mutated, so
	// converters held from prior activations stay valid. The zero value is
	// the identity converter: every path passes through unchanged.
	PathConverter struct {
		pairs []MountPair
	}
)

// NewPathConverter builds a converter from mount pairs, keeping only pairs
// whose local side exists and is a directory. Pairs are ordered longest
// local prefix first so nested mounts resolve to the most specific mapping.
func NewPathConverter(pairs []MountPair, stat StatFunc) *PathConverter {
	if stat == nil {
		stat = os.Stat
	}
	kept := make([]MountPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Local == "" || p.Remote == "" {
			continue
		}
		info, err := stat(p.Local)
		if err != nil || !info.IsDir() {
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return len(kept[i].Local) > len(kept[j].Local)
	})
	return &PathConverter{pairs: kept}
}

// IdentityConverter returns a converter with no mappings.
func IdentityConverter() *PathConverter {
	return &PathConverter{}
}

// ToRemote translates a local path into the remote context. Unmapped paths
// pass through unchanged; translation never fails.
func (c *PathConverter) ToRemote(localPath string) string {
	for _, p := range c.pairs {
		if rest, ok := pathSuffix(localPath, p.Local); ok {
			return p.Remote + rest
		}
	}
	return localPath
}

// ToLocal translates a remote path back to the local filesystem. The search
// prefers the longest matching remote prefix; unmapped paths pass through.
func (c *PathConverter) ToLocal(remotePath string) string {
	best := -1
	bestLen := -1
	for i, p := range c.pairs {
		if _, ok := pathSuffix(remotePath, p.Remote); ok && len(p.Remote) > bestLen {
			best, bestLen = i, len(p.Remote)
		}
	}
	if best == -1 {
		return remotePath
	}
	rest, _ := pathSuffix(remotePath, c.pairs[best].Remote)
	return c.pairs[best].Local + rest
}

// pathSuffix reports whether p is prefix itself or a descendant of it, and
// returns the remainder starting with the separator. Matching is on path
// component boundaries so "/ws/app2" does not match the "/ws/app" mount.
func pathSuffix(p, prefix string) (string, bool) {
	if p == prefix {
		return "", true
	}
	trimmed := strings.TrimSuffix(prefix, "/")
	if strings.HasPrefix(p, trimmed+"/") {
		return p[len(trimmed):], true
	}
	return "", false
}
