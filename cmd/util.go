package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/iafan/cwalk"
	"github.com/pkg/errors"
	"github.com/shenwei356/go-logging"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
)

// Options holds the global flags every subcommand shares.
type Options struct {
	NumCPUs int
	Verbose bool

	LogFile  string
	Log2File bool
}

func getOptions(cmd *cobra.Command) *Options {
	threads := getFlagNonNegativeInt(cmd, "threads")
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	sorts.MaxProcs = threads
	runtime.GOMAXPROCS(threads)

	logfile := getFlagString(cmd, "log")
	return &Options{
		NumCPUs: threads,
		Verbose: !getFlagBool(cmd, "quiet"),

		LogFile:  logfile,
		Log2File: logfile != "",
	}
}

// checkFileSuffix aborts the run if any of files lacks suffix, used by
// commands that write a fixed-extension output alongside stdout ("-").
func checkFileSuffix(suffix string, files ...string) {
	for _, file := range files {
		if isStdin(file) {
			continue
		}
		if !strings.HasSuffix(file, suffix) {
			checkError(fmt.Errorf("output file should have suffix %s: %s", suffix, file))
		}
	}
}

// getFileListFromDir walks path (following symlinks) collecting every
// file whose name matches pattern, using the same worker-pooled cwalk
// traversal the teacher's directory-mode index input uses.
func getFileListFromDir(path string, pattern *regexp.Regexp, threads int) ([]string, error) {
	files := make([]string, 0, 512)
	ch := make(chan string, threads)
	done := make(chan int)
	go func() {
		for file := range ch {
			files = append(files, file)
		}
		done <- 1
	}()

	cwalk.NumWorkers = threads
	err := cwalk.WalkWithSymlinks(path, func(_path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && pattern.MatchString(info.Name()) {
			ch <- filepath.Join(path, _path)
		}
		return nil
	})
	close(ch)
	<-done
	if err != nil {
		return nil, err
	}
	return files, nil
}

// addLog attaches a second logging backend writing to file, in addition
// to the colored stderr backend root.go installs, so a long alignment
// run keeps a plain-text record on disk.
func addLog(file string, verbose bool) *os.File {
	fh, err := os.Create(file)
	checkError(errors.Wrapf(err, "creating log file: %s", file))

	level := logging.INFO
	if !verbose {
		level = logging.WARNING
	}

	fileBackend := logging.NewLogBackend(fh, "", 0)
	formatter := logging.MustStringFormatter(`%{time:2006-01-02 15:04:05} [%{level:.4s}] %{message}`)
	fileBackendFormatted := logging.NewBackendFormatter(fileBackend, formatter)
	fileBackendLeveled := logging.AddModuleLevel(fileBackendFormatted)
	fileBackendLeveled.SetLevel(level, "")

	stderrBackend := logging.NewLogBackend(os.Stderr, "", 0)
	stderrFormatter := logging.MustStringFormatter(`%{time:15:04:05.000} %{color}[%{level:.4s}]%{color:reset} %{message}`)
	stderrBackendFormatted := logging.NewBackendFormatter(stderrBackend, stderrFormatter)

	logging.SetBackend(stderrBackendFormatted, fileBackendLeveled)
	return fh
}

func getFlagString(cmd *cobra.Command, flag string) string {
	v, err := cmd.Flags().GetString(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

func getFlagBool(cmd *cobra.Command, flag string) bool {
	v, err := cmd.Flags().GetBool(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	v, err := cmd.Flags().GetInt(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	v := getFlagInt(cmd, flag)
	if v <= 0 {
		checkError(fmt.Errorf("value of flag --%s should be positive, got %d", flag, v))
	}
	return v
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	v := getFlagInt(cmd, flag)
	if v < 0 {
		checkError(fmt.Errorf("value of flag --%s should be >= 0, got %d", flag, v))
	}
	return v
}

func getFlagFloat64(cmd *cobra.Command, flag string) float64 {
	v, err := cmd.Flags().GetFloat64(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

func getFlagStringSlice(cmd *cobra.Command, flag string) []string {
	v, err := cmd.Flags().GetStringSlice(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

func getFlagInt64(cmd *cobra.Command, flag string) int64 {
	v, err := cmd.Flags().GetInt64(flag)
	checkError(errors.Wrapf(err, "flag --%s", flag))
	return v
}

// isStdin reports whether file names stdin by the conventional "-".
func isStdin(file string) bool { return file == "-" }

// getFileListFromArgsAndFile collects positional args as input file
// paths, falling back to stdin ("-") when none are given and
// allowEmptyArgs is true, mirroring the teacher's read-source commands.
func getFileListFromArgsAndFile(cmd *cobra.Command, args []string, checkFile bool, listFlag string, allowEmptyArgs bool) []string {
	files := append([]string{}, args...)

	if listFlag != "" {
		if listFile := getFlagString(cmd, listFlag); listFile != "" {
			fh, err := xopen.Ropen(listFile)
			checkError(errors.Wrapf(err, "reading file list %s", listFile))
			scanner := bufio.NewScanner(fh)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line != "" {
					files = append(files, line)
				}
			}
			fh.Close()
		}
	}

	if len(files) == 0 {
		if allowEmptyArgs {
			return []string{"-"}
		}
		checkError(fmt.Errorf("input file(s) needed"))
	}

	if checkFile {
		for _, f := range files {
			if isStdin(f) {
				continue
			}
			if ok, err := pathutil.Exists(f); err != nil || !ok {
				checkError(fmt.Errorf("input file does not exist: %s", f))
			}
		}
	}
	return files
}

// outStream opens path for writing, honoring "-" for stdout and a
// ".gz" suffix for transparent compression, via xopen -- the same
// helper shape as lexicmap's output-path handling.
func outStream(path string) (io.WriteCloser, error) {
	return xopen.Wopen(path)
}

// makeOutDir creates outDir, refusing to clobber a non-empty directory
// unless force is set.
func makeOutDir(outDir string, force bool) error {
	if outDir == "" || outDir == "." || outDir == "./" {
		return fmt.Errorf("output directory must not be the current directory")
	}
	existed, err := pathutil.DirExists(outDir)
	if err != nil {
		return errors.Wrap(err, outDir)
	}
	if existed {
		empty, err := pathutil.IsEmpty(outDir)
		if err != nil {
			return errors.Wrap(err, outDir)
		}
		if !empty {
			if !force {
				return fmt.Errorf("output directory not empty: %s (use --force to overwrite)", outDir)
			}
			if err := os.RemoveAll(outDir); err != nil {
				return err
			}
		}
	}
	return os.MkdirAll(outDir, 0777)
}

func formatFlagUsage(s string) string { return s }

func usageTemplate(extraUsage string) string {
	return `Usage:{{if .Runnable}}
  {{.UseLine}}` + extraUsage + `{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}
`
}
