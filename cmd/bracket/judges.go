package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-bracket/internal/application"
)

func newJudgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "judges",
		Short: "List the judge types a configuration may name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range application.NewJudgeRegistry().Types() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), t); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
