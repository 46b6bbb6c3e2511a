package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/btzy/circuit-playground/pkg/ckt"
	"github.com/btzy/circuit-playground/pkg/sim"
)

var (
	runTicks      int
	runInputPath  string
	runOutputPath string
	runDump       bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Simulate a circuit headlessly",
	Long: `Compile a circuit and step it a fixed number of ticks without opening
a window. File communicators can be bound to real files, which makes this
useful for batch-processing circuits that read or write bytes.

Examples:
  cpg run clock.ckt --ticks 1000
  cpg run rot13.ccpg --ticks 100000 --input plain.txt --output cipher.txt
  cpg run adder.ckt --ticks 64 --dump`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&runTicks, "ticks", "t", 100, "number of simulation ticks")
	runCmd.Flags().StringVar(&runInputPath, "input", "", "file fed to the first file-input communicator")
	runCmd.Flags().StringVar(&runOutputPath, "output", "", "file written by the first file-output communicator")
	runCmd.Flags().BoolVar(&runDump, "dump", false, "print the final circuit state as .ckt text")
}

func runRun(cmd *cobra.Command, args []string) error {
	g, err := readGrid(args[0])
	if err != nil {
		return err
	}
	if g.Empty() {
		return errors.Errorf("%s holds an empty circuit", args[0])
	}

	reg := sim.NewRegistry()
	s := sim.New()
	if err := s.Compile(&g, reg); err != nil {
		return errors.Wrap(err, "compiling circuit")
	}
	if err := bindCommFiles(s); err != nil {
		return err
	}
	defer closeComms(s)
	// Reset opens the bound files and seeds the node defaults.
	s.Reset()

	for i := 0; i < runTicks; i++ {
		s.Step()
	}
	s.TakeSnapshot(&g)

	if verbose {
		for i := int32(0); ; i++ {
			c := s.Communicator(i)
			if c == nil {
				break
			}
			switch c := c.(type) {
			case *sim.FileInputCommunicator:
				fmt.Printf("communicator [%d] file input: %s\n", i, c.FilePath())
			case *sim.FileOutputCommunicator:
				fmt.Printf("communicator [%d] file output: %s\n", i, c.File())
			default:
				fmt.Printf("communicator [%d] screen\n", i)
			}
		}
	}

	st := s.Latest()
	high := 0
	for _, lv := range st.Levels {
		if lv {
			high++
		}
	}
	fmt.Printf("Ran %d ticks: %d of %d nodes high\n", st.Tick, high, len(st.Levels))
	if runDump {
		fmt.Print(ckt.Format(&g))
	}
	return nil
}

// bindCommFiles attaches --input and --output to the first file
// communicators of each direction, in compiled order.
func bindCommFiles(s *sim.Simulator) error {
	in, out := runInputPath, runOutputPath
	for i := int32(0); ; i++ {
		c := s.Communicator(i)
		if c == nil {
			break
		}
		switch c := c.(type) {
		case *sim.FileInputCommunicator:
			if in != "" {
				c.SetFilePath(in)
				in = ""
			}
		case *sim.FileOutputCommunicator:
			if out != "" {
				c.SetFile(out)
				out = ""
			}
		}
	}
	if in != "" {
		return errors.New("--input given but the circuit has no file-input communicator")
	}
	if out != "" {
		return errors.New("--output given but the circuit has no file-output communicator")
	}
	return nil
}

func closeComms(s *sim.Simulator) {
	for i := int32(0); ; i++ {
		c := s.Communicator(i)
		if c == nil {
			return
		}
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
