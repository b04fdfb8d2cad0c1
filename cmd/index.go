package cmd

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/bioforge/fmap/fmindex"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the forward and mirror FM-index from reference FASTA",
	Long: `Build the forward and mirror FM-index from reference FASTA

Input:
  1. Plain or gzipped FASTA files given via positional arguments or the
     flag -X/--infile-list.
  2. Or a directory of FASTA files via -I/--in-dir, matched by
     -r/--file-regexp.

Output:
  <out-prefix>.1.ebwt, <out-prefix>.2.ebwt     forward index
  <out-prefix>.rev.1.ebwt, <out-prefix>.rev.2.ebwt   mirror index
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
			if fhLog != nil {
				fhLog.Close()
			}
		}()

		sampleRate := getFlagPositiveInt(cmd, "sample-rate")
		outPrefix := getFlagString(cmd, "out-prefix")
		inDir := getFlagString(cmd, "in-dir")
		skipFileCheck := getFlagBool(cmd, "skip-file-check")

		if outPrefix == "" {
			checkError(fmt.Errorf("flag -O/--out-prefix is needed"))
		}

		var files []string
		var err error
		if inDir != "" {
			reFileStr := getFlagString(cmd, "file-regexp")
			reFile, err := regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "parsing --file-regexp"))
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
		} else {
			files = getFileListFromArgsAndFile(cmd, args, !skipFileCheck, "infile-list", false)
		}
		if len(files) == 0 {
			checkError(fmt.Errorf("reference FASTA file(s) needed"))
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("fmap v%s", VERSION)
			log.Infof("building index from %d reference file(s)", len(files))
		}

		var bar *mpb.Bar
		var pbs *mpb.Progress
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("reading reference files: ", decor.WC{W: len("reading reference files: "), C: decor.DindentRight}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(decor.OnComplete(decor.Name(""), ". done")),
			)
		}

		refs := make([]fmindex.ReferenceSeq, 0, 64)
		for _, file := range files {
			reader, err := fastx.NewReader(nil, file, "")
			checkError(errors.Wrapf(err, "opening reference file: %s", file))
			for {
				record, err := reader.Read()
				if err != nil {
					break
				}
				seqCopy := make([]byte, len(record.Seq.Seq))
				copy(seqCopy, record.Seq.Seq)
				refs = append(refs, fmindex.ReferenceSeq{
					Name:  string(record.ID),
					Bases: seqCopy,
				})
			}
			reader.Close()
			if bar != nil {
				bar.Increment()
			}
		}
		if pbs != nil {
			pbs.Wait()
		}
		if len(refs) == 0 {
			checkError(fmt.Errorf("no sequences read from input files"))
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("read %d reference sequence(s)", len(refs))
		}

		buildOpt := fmindex.BuildOptions{SampleRate: uint8(sampleRate), NumCPUs: opt.NumCPUs}

		if opt.Verbose || opt.Log2File {
			log.Info("building forward index ...")
		}
		fwd, err := fmindex.BuildForward(refs, buildOpt)
		checkError(errors.Wrap(err, "building forward index"))
		checkError(errors.Wrap(fwd.Save(outPrefix), "saving forward index"))

		if opt.Verbose || opt.Log2File {
			log.Info("building mirror index ...")
		}
		mir, err := fmindex.BuildMirror(refs, buildOpt)
		checkError(errors.Wrap(err, "building mirror index"))
		checkError(errors.Wrap(mir.Save(outPrefix+".rev"), "saving mirror index"))

		if opt.Verbose || opt.Log2File {
			log.Infof("index saved: %s.{1,2}.ebwt, %s.rev.{1,2}.ebwt", outPrefix, outPrefix)
		}
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing reference FASTA files.`))
	indexCmd.Flags().StringP("file-regexp", "r", `\.(f[an]a?(sta)?)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching reference files in -I/--in-dir.`))
	indexCmd.Flags().BoolP("skip-file-check", "S", false,
		formatFlagUsage(`Skip input file existence checking.`))

	indexCmd.Flags().StringP("out-prefix", "O", "",
		formatFlagUsage(`Output index path prefix.`))
	indexCmd.Flags().IntP("sample-rate", "", 4,
		formatFlagUsage(`Suffix-array sample stride is 2^rate; higher is smaller but slower to resolve.`))

	indexCmd.SetUsageTemplate(usageTemplate(" {<seq files> | -I <dir> | -X <file list>} -O <out prefix>"))
}
