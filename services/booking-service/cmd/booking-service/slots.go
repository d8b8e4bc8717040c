package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
)

func newSlotsCommand() *cobra.Command {
	var asList bool
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the configured slot grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := slotSettings()
			if err != nil {
				return err
			}
			grid, err := slots.New(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asList {
				for _, l := range grid.Labels() {
					fmt.Fprintln(out, l)
				}
				return nil
			}
			fmt.Fprintf(out, "%d slots: %s\n", grid.Len(), strings.Join(grid.Labels(), " "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asList, "list", false, "print one slot per line")
	return cmd
}
