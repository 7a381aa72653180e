// The main package for the prospectflow executable.
package main

import (
	"github.com/walt0white1/prospectflow-sub000/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
