package main

import (
	"fmt"
	"os"

	dsstorecmd "github.com/gershwin-desktop/gershwin-workspace-sub002/cmd/dsstore"
)

func main() {
	if err := dsstorecmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
