package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report every problem in a trip request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			err = pricing.ValidateAll(req)
			var verrs pricing.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", fe.Field, fe.Message)
				}
				return fmt.Errorf("%d problem(s) found", len(verrs))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "trip request JSON file, - for stdin")
	return cmd
}
