package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newVoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices from the configured mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			resolver := buildResolver(cfg)
			voices, err := resolver.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tENABLED")
			for _, v := range voices {
				_, _ = fmt.Fprintf(w, "%s\t%t\n", v.Name, v.Enabled)
			}
			return w.Flush()
		},
	}

	return cmd
}
