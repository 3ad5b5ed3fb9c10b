// Package main implements the goasan CLI tool: a small companion to the
// runtime library, not a replacement for `go build`. It offers a "check"
// subcommand that inspects a target module's go.mod for compatibility with
// this runtime, and a "run" subcommand that runs a program with the
// runtime's environment knobs pre-set.
//
// Instrumenting the target program's memory accesses is the job of a
// separate compiler pass; this tool only prepares and runs what that pass
// produces.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		checkCommand(os.Args[2:])
	case "run":
		runCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("goasan version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`goasan - pure-Go AddressSanitizer runtime tool

USAGE:
    goasan <command> [arguments]

COMMANDS:
    check      Check a module's go.mod for runtime compatibility
    run        Run a program with GOASAN_OPTIONS pre-configured
    version    Show version information
    help       Show this help message

EXAMPLES:
    goasan check ./go.mod
    goasan run -options redzone_size=32,stats=true ./cmd/myapp
`)
}
