// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/rubyup/rubyup/cmd/rubyup"

func main() {
	cmd.Execute()
}
