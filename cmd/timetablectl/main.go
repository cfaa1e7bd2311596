// Command timetablectl is a harness around GenerateTimetable: it loads a
// JSON fixture, runs one generation, and prints a tabular report. It is not
// part of the engine's external interface, only a convenience for driving
// it from a shell.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(flag.CommandLine)
	defer klog.Flush()

	root := &cobra.Command{
		Use:   "timetablectl",
		Short: "Drive the timetable generation engine from the command line",
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(newRunCommand())
	root.AddCommand(newQTableCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
