// Command callback-sink is a development webhook receiver for oscars
// notifications. It records every POST to /callbacks and lists them on GET.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	port     string
	capacity int
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "callback-sink",
	Short:         "Receive and record oscars update notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSink,
}

func init() {
	rootCmd.Flags().StringVarP(&port, "port", "p", "9099", "port to listen on")
	rootCmd.Flags().IntVar(&capacity, "capacity", 1000, "number of callbacks kept in memory")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every received payload")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
