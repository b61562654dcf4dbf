// Package dsstore implements the dsstore command, the CLI front end to
// the .DS_Store codec: record dumps, decoded metadata, and the HTTP
// inspector.
package dsstore

import (
	"fmt"
	"os"

	"github.com/gershwin-desktop/gershwin-workspace-sub002/internal/config"
	"github.com/gershwin-desktop/gershwin-workspace-sub002/internal/server"
)

const version = "0.1.0"

// Execute is the main entry point for the dsstore command
func Execute() error {
	cfg := config.Load()
	cfg.Apply()

	args := os.Args[1:]

	if len(args) == 0 {
		return runDefault()
	}

	command := args[0]
	switch command {
	case "help", "-h", "--help":
		showHelp()
		return nil
	case "version", "-v", "--version":
		showVersion()
		return nil
	case "dump":
		if len(args) < 2 {
			return fmt.Errorf("usage: dsstore dump <file-or-directory>")
		}
		return runDump(args[1])
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("usage: dsstore info <directory>")
		}
		return runInfo(args[1])
	case "serve":
		if len(args) > 1 {
			cfg.Addr = args[1]
		}
		return server.Run(server.Config{Addr: cfg.Addr})
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runDefault() error {
	fmt.Println("dsstore - .DS_Store interoperability tool")
	fmt.Println("Version: " + version)
	fmt.Println("")
	fmt.Println("Use 'dsstore help' for available commands.")
	return nil
}

func showHelp() {
	fmt.Println("dsstore - .DS_Store interoperability tool")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  dsstore [command]")
	fmt.Println("")
	fmt.Println("Available Commands:")
	fmt.Println("  dump <path>    Print every record in a .DS_Store file")
	fmt.Println("  info <dir>     Print the decoded view settings of a directory")
	fmt.Println("  serve [addr]   Start the read-only metadata inspector")
	fmt.Println("  help           Show help information")
	fmt.Println("  version        Show version information")
}

func showVersion() {
	fmt.Println("dsstore version " + version)
}
