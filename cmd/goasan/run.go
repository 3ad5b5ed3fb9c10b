// run.go implements the 'goasan run' command.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kolkov/goasan/internal/asan/options"
)

// runCommand runs a Go package with GOASAN_OPTIONS pre-configured, acting
// as a thin wrapper around `go run` rather than a build tool of its own:
// instrumentation itself is a separate compiler pass's job, this command
// only prepares the environment that pass's output reads at startup.
//
//	goasan run -options redzone_size=32,stats=true ./cmd/myapp arg1 arg2
func runCommand(args []string) {
	optString, rest, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goasan run: %v\n", err)
		os.Exit(1)
	}

	cmd := exec.Command("go", append([]string{"run"}, rest...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), options.EnvVar+"="+optString)

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "goasan run: %v\n", err)
		os.Exit(1)
	}
}

// parseRunArgs extracts the first "-options k=v,k=v" flag pair, wherever it
// appears in args (translated to
// the colon-separated GOASAN_OPTIONS form) from args, returning the options
// string and the remaining arguments to forward to `go run`.
func parseRunArgs(args []string) (optString string, rest []string, err error) {
	for i := 0; i < len(args); i++ {
		if args[i] == "-options" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("-options requires a value")
			}
			optString = strings.ReplaceAll(args[i+1], ",", ":")
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return optString, rest, nil
		}
	}
	return "", args, nil
}
