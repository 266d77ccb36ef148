// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// currentGOOS is a package-level copy of runtime.GOOS; the *ForOS variants
// exist so the Windows code paths stay testable on any host.
var currentGOOS = runtime.GOOS

// pathKeyCasings are the spellings of the executable search path variable
// observed in Windows environments. The variable is case-insensitive there,
// but Go string maps are not, so every spelling must be checked before
// concluding the variable is unset.
var pathKeyCasings = []string{"PATH", "Path", "path"}

// LookupPathVar returns the executable-search-path entry of env together with
// the key it was found under. On Windows all known casings are checked in
// order; on other systems only the canonical "PATH" spelling is consulted
// because differently-cased keys are legitimately distinct variables there.
func LookupPathVar(env map[string]string) (key, value string, ok bool) {
	return lookupPathVarForOS(env, currentGOOS)
}

// lookupPathVarForOS is the GOOS-parameterized core of LookupPathVar,
// split out so tests can exercise the Windows behavior on any host.
func lookupPathVarForOS(env map[string]string, goos string) (key, value string, ok bool) {
	if goos != Windows {
		v, ok := env["PATH"]
		return "PATH", v, ok
	}
	for _, k := range pathKeyCasings {
		if v, ok := env[k]; ok {
			return k, v, true
		}
	}
	return "PATH", "", false
}

// PrependPathDir returns a copy of env with dir prepended to the executable
// search path, preserving whatever key casing the environment already uses.
// When the variable is absent entirely, the canonical "PATH" key is created.
func PrependPathDir(env map[string]string, dir string) map[string]string {
	return prependPathDirForOS(env, dir, currentGOOS)
}

func prependPathDirForOS(env map[string]string, dir string, goos string) map[string]string {
	out := make(map[string]string, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	key, current, ok := lookupPathVarForOS(out, goos)
	if !ok || current == "" {
		out[key] = dir
		return out
	}
	out[key] = dir + string(os.PathListSeparator) + current
	return out
}

// NormalizeSeparators rewrites path separators in p to the host convention.
// Version manager shims on Windows frequently report forward-slash paths.
func NormalizeSeparators(p string) string {
	if filepath.Separator == '/' {
		return p
	}
	return strings.ReplaceAll(p, "/", string(filepath.Separator))
}

