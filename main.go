// The main package for the seo-dashboard executable.
package main

import (
	"github.com/JakeFAU/seo-dashboard/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
