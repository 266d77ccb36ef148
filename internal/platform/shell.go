// SPDX-License-Identifier: MPL-2.0

package platform

// PreferredShell returns the user's interactive shell from env and whether
// one should be used for activation command lines. Activation snippets
// routinely rely on shell init files (chruby.sh, asdf.sh, rvm functions), so
// when the invoking user has a configured shell it is honored. Selection
// consults only env, never the ambient process environment, so callers stay
// in control of what the child sees.
//
// On Windows this always reports false: cmd.exe quoting is incompatible with
// the POSIX command lines the managers emit, so commands are invoked directly.
func PreferredShell(env map[string]string) (shell string, ok bool) {
	return preferredShellForOS(env, currentGOOS)
}

func preferredShellForOS(env map[string]string, goos string) (string, bool) {
	if goos == Windows {
		return "", false
	}
	if s := env["SHELL"]; s != "" {
		return s, true
	}
	return "", false
}
