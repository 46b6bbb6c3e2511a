package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cpg",
	Short: "Circuit Playground - digital logic sandbox",
	Long: `Circuit Playground (cpg) edits and simulates grid-based digital logic
circuits built from wires, gates, relays and I/O communicators.

Examples:
  cpg ui                          # Launch the interactive editor
  cpg ui counter.ccpg             # Edit an existing circuit
  cpg run clock.ckt --ticks 100   # Simulate headlessly
  cpg info adder.ccpg --sexp      # Inspect the compiled netlist
  cpg render adder.ccpg -o adder.png
  cpg convert clock.ckt clock.ccpg`,
	Version: "0.9.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
