// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RubyNotFoundId Id = iota + 1
	ManagerNotFoundId
	UntrustedWorkspaceId
	ProbeParseFailedId
	ActivationCancelledId
	ContainerEngineNotFoundId
	ContainerNotConfiguredId
	ConfigLoadFailedId
	ShellNotFoundId
	VersionFileInvalidId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // external docs about the failing tool, if any
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	rubyNotFoundIssue = &Issue{
		id: RubyNotFoundId,
		mdMsg: `
# No Ruby runtime found!

We searched every known installation location and the ambient PATH, but
could not find a Ruby matching your workspace.

## Things you can try:
- Check which version your workspace expects:
~~~
$ cat .ruby-version
~~~

- Install that version with your version manager, e.g.:
~~~
$ rbenv install 3.3.4
$ mise install ruby@3.3.4
$ ruby-install ruby 3.3.4
~~~

- Or point rubyup at an explicit installation in your config:
~~~cue
manager: "chruby"
manager_paths: {
  chruby: "/opt/rubies/ruby-3.3.4/bin/ruby"
}
~~~`,
		extLinks: []HttpLink{"https://www.ruby-lang.org/en/documentation/installation/"},
	}

	managerNotFoundIssue = &Issue{
		id: ManagerNotFoundId,
		mdMsg: `
# No version manager detected!

Automatic detection checked every supported version manager and found none.

## Managers we look for (in order):
1. shadowenv (a .shadowenv.d directory in the workspace)
2. chruby (~/.rubies or /opt/rubies)
3. rbenv (~/.rbenv)
4. rvm (~/.rvm)
5. asdf (~/.asdf or Homebrew)
6. mise (~/.local/bin/mise)
7. a plain ruby on PATH

## Things you can try:
- Install a version manager, or a system Ruby
- Pick one explicitly in your config:
~~~cue
manager: "rbenv"
~~~

- Point rubyup at an unconventional install location:
~~~cue
manager_paths: {
  rbenv: "/opt/tools/rbenv/bin/rbenv"
}
~~~`,
	}

	untrustedWorkspaceIssue = &Issue{
		id: UntrustedWorkspaceId,
		mdMsg: `
# Workspace is not trusted!

shadowenv refused to load this workspace's environment because the
directory has not been trusted yet. This is a safety feature: trusting a
directory lets it execute arbitrary environment mutations.

## Things you can try:
- Review the workspace's .shadowenv.d contents, then trust it:
~~~
$ shadowenv trust
~~~

- Or re-run activation and accept the trust prompt.`,
		extLinks: []HttpLink{"https://shopify.github.io/shadowenv/"},
	}

	probeParseFailedIssue = &Issue{
		id: ProbeParseFailedId,
		mdMsg: `
# Could not read the runtime's answer!

The Ruby we activated ran, but its environment report could not be decoded.
This usually means something in your shell startup prints to stderr and
corrupted the payload.

## Things you can try:
- Run the probe manually and inspect the output:
~~~
$ ruby -W0 -e 'require "json"; STDERR.print JSON.dump(ENV.to_h)'
~~~

- Silence noisy output in your shell init files (.bashrc, .zshrc)
- Run with verbose mode for the raw captured output:
~~~
$ rubyup --verbose activate
~~~`,
	}

	activationCancelledIssue = &Issue{
		id: ActivationCancelledId,
		mdMsg: `
# Activation was cancelled!

No Ruby version is configured for this workspace and the fallback offer
was declined.

## Things you can try:
- Pin a version for the workspace:
~~~
$ rubyup version-file 3.3.4
~~~

- Or accept the offered runtime next time (it is only used for the
  current session unless you persist it).`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

The devcontainer manager needs a container CLI and neither Docker nor
Podman was found on PATH.

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `

- Install Docker:
  - https://docs.docker.com/get-docker/

- Configure your preferred engine:
~~~cue
container: {
  engine: "podman"  // or "docker"
}
~~~`,
	}

	containerNotConfiguredIssue = &Issue{
		id: ContainerNotConfiguredId,
		mdMsg: `
# No container configured!

The devcontainer manager is selected but no running container is named in
the configuration, so there is nothing to exec into.

## Things you can try:
- Name the container your workspace runs in:
~~~cue
manager: "devcontainer"
container: {
  name: "myapp-devcontainer"
}
~~~

- Check the container is actually running:
~~~
$ docker ps
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the rubyup configuration file.

## Configuration file locations:
- Linux: ~/.config/rubyup/config.cue
- macOS: ~/Library/Application Support/rubyup/config.cue
- Windows: %APPDATA%\rubyup\config.cue

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/rubyup/config.cue
~~~

## Example configuration:
~~~cue
manager: "auto"
bundle_root: "server"
fallback_timeout_seconds: 10
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The selected version manager needs an interactive shell to source its
activation scripts, and no shell is configured.

## Things you can try:
- Set the SHELL environment variable:
~~~
$ export SHELL=/bin/bash
~~~

- Switch to a manager that does not need a shell (rbenv, mise, chruby):
~~~cue
manager: "rbenv"
~~~`,
	}

	versionFileInvalidIssue = &Issue{
		id: VersionFileInvalidId,
		mdMsg: `
# Version file is invalid!

A .ruby-version file exists but its contents could not be parsed. An
explicit-but-broken pin is never skipped silently.

## Expected formats:
~~~
3.3.4
truffleruby-21.3.0
3.4.0-preview1
~~~

## Things you can try:
- Fix or remove the file named in the error message
- Re-pin the version:
~~~
$ rubyup version-file 3.3.4
~~~`,
	}

	issues = map[Id]*Issue{
		rubyNotFoundIssue.Id():            rubyNotFoundIssue,
		managerNotFoundIssue.Id():         managerNotFoundIssue,
		untrustedWorkspaceIssue.Id():      untrustedWorkspaceIssue,
		probeParseFailedIssue.Id():        probeParseFailedIssue,
		activationCancelledIssue.Id():     activationCancelledIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		containerNotConfiguredIssue.Id():  containerNotConfiguredIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		shellNotFoundIssue.Id():           shellNotFoundIssue,
		versionFileInvalidIssue.Id():      versionFileInvalidIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError maps a typed activation failure to its guidance entry. Unmapped
// errors return nil; the caller falls back to the plain error text.
func ForError(err error) *Issue {
	switch {
	case errors.Is(err, activation.ErrNotFound):
		var nf *activation.NotFoundError
		if errors.As(err, &nf) {
			switch nf.Tool {
			case "ruby version manager":
				return Get(ManagerNotFoundId)
			case "docker", "podman":
				return Get(ContainerEngineNotFoundId)
			case "shell":
				return Get(ShellNotFoundId)
			}
		}
		return Get(RubyNotFoundId)
	case errors.Is(err, activation.ErrVersionFileInvalid):
		return Get(VersionFileInvalidId)
	case errors.Is(err, activation.ErrUntrustedWorkspace):
		return Get(UntrustedWorkspaceId)
	case errors.Is(err, activation.ErrParseFailure):
		return Get(ProbeParseFailedId)
	case errors.Is(err, activation.ErrCancelled):
		return Get(ActivationCancelledId)
	case errors.Is(err, activation.ErrMissingConfiguration):
		return Get(ContainerNotConfiguredId)
	case errors.Is(err, config.ErrInvalidManagerID):
		return Get(ConfigLoadFailedId)
	default:
		return nil
	}
}
