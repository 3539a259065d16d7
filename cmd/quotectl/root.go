package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Price and validate inbound travel package requests",
		Long: `quotectl runs the quote engine locally against trip requests written as JSON.

Examples:
  quotectl calculate -f request.json
  quotectl calculate --external-rate 10000 < request.json
  quotectl validate -f request.json
  quotectl warmup --redis 127.0.0.1:6379 --location kyoto`,
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newCalculateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newWarmupCmd())
	return root
}

// readRequest decodes a TripRequest from path, or from stdin when path is "-".
func readRequest(cmd *cobra.Command, path string) (pricing.TripRequest, error) {
	var src io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return pricing.TripRequest{}, err
		}
		defer f.Close()
		src = f
	}
	var req pricing.TripRequest
	if err := json.NewDecoder(src).Decode(&req); err != nil {
		return pricing.TripRequest{}, fmt.Errorf("decode trip request: %w", err)
	}
	return req.Normalize(), nil
}
