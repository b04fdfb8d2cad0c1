// Package cmd wires the cobra command tree, logging, and the small flag
// helpers every subcommand shares -- the ambient CLI scaffolding of
// lexicmap/cmd, adapted to fmap's own command set.
package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/shenwei356/go-logging"
	"github.com/spf13/cobra"
)

// VERSION is set at release tag time; "dev" in a working checkout.
const VERSION = "0.1.0-dev"

var log *logging.Logger

func init() {
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	formatter := logging.MustStringFormatter(`%{time:15:04:05.000} %{color}[%{level:.4s}]%{color:reset} %{message}`)
	backendFormatted := logging.NewBackendFormatter(backend, formatter)
	logging.SetBackend(backendFormatted)
	log = logging.MustGetLogger("fmap")
}

// RootCmd is the entry point cobra command; main.go calls Execute.
var RootCmd = &cobra.Command{
	Use:   "fmap",
	Short: "quality-aware backtracking short-read aligner",
	Long: `fmap aligns short DNA reads against a large reference genome using an
FM-index and a quality-weighted backtracking search, in the style of
early short-read aligners such as bowtie and maq.
`,
}

// Execute runs the command tree, exiting the process with status 1 when
// cobra reports an error (checkError below exits the same way for
// failures inside a command).
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// checkError aborts the process with a logged message, the category-1
// fatal path of spec.md §7 ("user-input errors... fatal, message to
// stderr, nonzero exit").
func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.SetUsageTemplate(usageTemplate(""))

	RootCmd.PersistentFlags().IntP("threads", "j", 0,
		formatFlagUsage(`Number of worker threads (0 for all CPUs).`))
	RootCmd.PersistentFlags().BoolP("quiet", "q", false,
		formatFlagUsage(`Suppress progress/info messages.`))
	RootCmd.PersistentFlags().StringP("log", "", "",
		formatFlagUsage(`Also write log messages to this file.`))
}
