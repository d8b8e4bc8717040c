package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "booking-service",
		Short: "Barbershop booking and payment engine",
		Long: `booking-service schedules barbershop appointments on a fixed slot grid,
records their payments and keeps both consistent.

Configuration is read from the environment (see DATABASE_URL, STORE_DRIVER,
JWT_SECRET and friends).`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSlotsCommand())
	return root
}
