package main

import (
	"github.com/spf13/cobra"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Check the warehouse game log; modern seasons must pass, older ones only warn",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, checkErr := a.quality().Check(ctx)
		if err := printJSON(stdout, rep); err != nil {
			return err
		}
		return checkErr
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}
