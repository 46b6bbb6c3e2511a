package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a circuit between the binary and text formats",
	Long: `Read a circuit in either format and write it in the format implied by
the output extension: .ckt produces the line-oriented text format,
anything else the binary format.

Examples:
  cpg convert adder.ccpg adder.ckt
  cpg convert adder.ckt adder.ccpg`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	g, err := readGrid(args[0])
	if err != nil {
		return err
	}
	if g.Empty() {
		return errors.Errorf("%s holds an empty circuit", args[0])
	}
	if err := writeGrid(&g, args[1]); err != nil {
		return err
	}
	b := g.Bounds()
	fmt.Printf("Wrote %dx%d circuit to %s\n", b.Dx(), b.Dy(), args[1])
	return nil
}
