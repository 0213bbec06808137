package cmd

import (
	"fmt"

	"github.com/ngfw-tools/ruleforge/internal/brand"
)

// RunVersion prints the build identity.
func RunVersion() {
	fmt.Printf("%s %s\n", brand.BinaryName, brand.Version)
	fmt.Printf("  commit: %s\n", brand.GitCommit)
	fmt.Printf("  built:  %s\n", brand.BuildTime)
}
