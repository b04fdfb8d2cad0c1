package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a full-mode alignment output file",
	Long: `Summarize a full-mode alignment output file

Reads the tab-separated full-mode output of 'fmap align' and reports
the mean and standard deviation of per-hit mismatch counts, plus an
optional histogram plot.
`,
	Run: func(cmd *cobra.Command, args []string) {
		files := getFileListFromArgsAndFile(cmd, args, true, "", true)
		if len(files) != 1 {
			checkError(fmt.Errorf("stats takes exactly one input file"))
		}

		plotPath := getFlagString(cmd, "plot")

		fh, err := xopen.Ropen(files[0])
		checkError(errors.Wrapf(err, "opening %s", files[0]))
		defer fh.Close()

		var mismatchCounts []float64
		var nHits int
		scanner := bufio.NewScanner(fh)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			fields := strings.Split(line, "\t")
			if len(fields) < 7 {
				continue
			}
			nHits++
			desc := fields[6]
			if desc == "-" {
				mismatchCounts = append(mismatchCounts, 0)
				continue
			}
			mismatchCounts = append(mismatchCounts, float64(len(strings.Split(desc, ","))))
		}
		checkError(errors.Wrap(scanner.Err(), "reading "+files[0]))

		if nHits == 0 {
			log.Warning("no hit lines found")
			return
		}

		mean := stat.Mean(mismatchCounts, nil)
		sd := stat.StdDev(mismatchCounts, nil)
		fmt.Printf("hits\t%d\n", nHits)
		fmt.Printf("mean_mismatches\t%.4f\n", mean)
		fmt.Printf("stdev_mismatches\t%.4f\n", sd)

		if plotPath != "" {
			checkError(errors.Wrap(plotMismatchHistogram(mismatchCounts, plotPath), "plotting histogram"))
			log.Infof("histogram saved: %s", plotPath)
		}
	},
}

func plotMismatchHistogram(counts []float64, path string) error {
	p := plot.New()
	values := plotter.Values(counts)
	hist, err := plotter.NewHist(values, 10)
	if err != nil {
		return errors.Wrap(err, "building histogram")
	}
	p.Add(hist)
	p.Title.Text = "mismatches per hit"
	p.X.Label.Text = "mismatches"
	p.Y.Label.Text = "count"

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func init() {
	RootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("plot", "", "", formatFlagUsage(`Write a mismatch-count histogram PNG to this path.`))
}
