package cmd

import (
	"github.com/spf13/cobra"

	appui "github.com/btzy/circuit-playground/internal/ui"
	"github.com/btzy/circuit-playground/pkg/state"
)

var uiCmd = &cobra.Command{
	Use:   "ui [file]",
	Short: "Launch the interactive circuit editor",
	Long: `Launch the graphical editor with the drawing tools, the simulator
controls and the clipboard slots. An optional circuit file is opened on
startup; both the binary format and the .ckt text format work.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := appui.NewState()
		if len(args) == 1 {
			var err error
			st.Edit(func(m *state.Manager) {
				err = m.Load(args[0])
			})
			if err != nil {
				return err
			}
		}
		return appui.Run(st)
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
