package sandbox

import (
	"fmt"
	"strings"
)

// allowedShellCommands is the fixed set of developer tools the generic
// shell entry point may spawn. Matching is case-insensitive.
var allowedShellCommands = []string{
	"ls",
	"cat",
	"tail",
	"pwd",
	"npm",
	"pnpm",
	"yarn",
	"npx",
	"node",
	"deno",
	"cargo",
	"go",
	"python",
	"pip",
	"pip3",
	"just",
	"make",
	"rg",
}

// blockedGitSubcommands are the git subcommands that reach the network.
var blockedGitSubcommands = []string{"push", "pull", "fetch", "remote", "clone"}

func isShellCommandAllowed(command string) bool {
	for _, allowed := range allowedShellCommands {
		if strings.EqualFold(allowed, command) {
			return true
		}
	}
	return false
}

// checkArgs rejects arguments carrying shell chaining metacharacters. No
// shell interprets these arguments, but refusing them stops the control
// plane from smuggling compound commands through tools that shell out.
func checkArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, "&|;") {
			return fmt.Errorf("%w: %q", ErrDisallowedToken, arg)
		}
	}
	return nil
}

func isGitSubcommandBlocked(subcommand string) bool {
	for _, blocked := range blockedGitSubcommands {
		if strings.EqualFold(blocked, subcommand) {
			return true
		}
	}
	return false
}

// AllowedShellCommands returns a copy of the shell allow-list.
func AllowedShellCommands() []string {
	out := make([]string, len(allowedShellCommands))
	copy(out, allowedShellCommands)
	return out
}
