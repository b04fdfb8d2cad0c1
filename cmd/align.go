package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/bioforge/fmap/config"
	"github.com/bioforge/fmap/hitsink"
	"github.com/bioforge/fmap/orchestrate"
	"github.com/bioforge/fmap/readsrc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align short reads against an FM-index built by 'fmap index'",
	Long: `Align short reads against an FM-index built by 'fmap index'

Modes (-M/--mode):
  exact     0-mismatch end-to-end search
  1mm       <=1-mismatch end-to-end search
  2mm       <=2-mismatch end-to-end search
  3mm       <=3-mismatch end-to-end search
  seeded    quality-weighted seeded search (maq-like), default

Input reads are FASTA/Q, a raw one-sequence-per-line file (--raw), or
(with --random-reads) a deterministically generated synthetic read set
for benchmarking. Only the first read file given (as an argument or in
the -X/--infile-list file) is aligned.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

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

		indexPrefix := getFlagString(cmd, "index")
		if indexPrefix == "" {
			checkError(fmt.Errorf("flag -x/--index is needed"))
		}
		outFile := getFlagString(cmd, "out-file")
		if outFile == "" {
			outFile = "-"
		}

		cfg := &config.Config{
			Mode:             parseMode(getFlagString(cmd, "mode")),
			SeedLen:          getFlagNonNegativeInt(cmd, "seed-len"),
			SeedMms:          getFlagNonNegativeInt(cmd, "seed-mismatches"),
			QualThresh:       getFlagNonNegativeInt(cmd, "qual-thresh"),
			OneHit:           getFlagBool(cmd, "one-hit"),
			Revcomp:          !getFlagBool(cmd, "no-revcomp"),
			Trim5:            getFlagNonNegativeInt(cmd, "trim5"),
			Trim3:            getFlagNonNegativeInt(cmd, "trim3"),
			MaxNs:            getFlagNonNegativeInt(cmd, "max-ns"),
			MaxBacktracks:    getFlagNonNegativeInt(cmd, "max-backtracks"),
			NThreads:         opt.NumCPUs,
			Seed:             getFlagInt64(cmd, "seed"),
			NPolicy:          parseNPolicy(getFlagBool(cmd, "n-to-a")),
			AssumeSameLength: getFlagBool(cmd, "assume-same-length"),
			SanityCheck:      getFlagBool(cmd, "sanity-check"),
		}
		checkError(errors.Wrap(cfg.Validate(), "invalid configuration"))

		src, err := openReadSource(cmd, args, cfg)
		checkError(errors.Wrap(err, "opening read source"))
		defer src.Close()

		mode := getFlagString(cmd, "sink-mode")
		sinkMode := hitsink.Full
		switch mode {
		case "concise":
			sinkMode = hitsink.Concise
		case "none":
			sinkMode = hitsink.None
		}

		sink, err := hitsink.New(outFile, sinkMode, nil)
		checkError(errors.Wrap(err, "opening output"))
		defer sink.Close()

		if opt.Verbose || opt.Log2File {
			log.Infof("fmap v%s", VERSION)
			log.Infof("mode: %s, index: %s, threads: %d", getFlagString(cmd, "mode"), indexPrefix, opt.NumCPUs)
		}

		o, err := orchestrate.New(indexPrefix, src, sink, cfg, 1<<16)
		checkError(errors.Wrap(err, "loading index"))

		switch cfg.Mode {
		case config.ModeExact:
			err = o.RunExact()
		case config.Mode1MM:
			err = o.Run1Mismatch()
		case config.Mode2MM, config.Mode3MM:
			err = o.Run23Mismatch()
		case config.ModeSeeded:
			err = o.RunSeeded()
		}
		checkError(errors.Wrap(err, "aligning"))
		checkError(errors.Wrap(sink.Flush(), "flushing output"))

		if opt.Verbose || opt.Log2File {
			log.Infof("done, completion bitmap covers %d read id(s)", o.Bitmap().Len())
		}
	},
}

func parseMode(s string) config.Mode {
	switch s {
	case "exact":
		return config.ModeExact
	case "1mm":
		return config.Mode1MM
	case "2mm":
		return config.Mode2MM
	case "3mm":
		return config.Mode3MM
	case "seeded", "":
		return config.ModeSeeded
	default:
		checkError(fmt.Errorf("unknown -M/--mode: %s (want exact|1mm|2mm|3mm|seeded)", s))
		return config.ModeSeeded
	}
}

func parseNPolicy(nToA bool) config.NPolicy {
	if nToA {
		return config.NToA
	}
	return config.NMatchesNothing
}

// openReadSource picks the Read Source implementation from the input
// flags: --random-reads synthetic reads for benchmarking, or else the
// first positional/--infile-list path, read as a raw one-sequence-per-line
// file under --raw and as FASTA/Q otherwise.
func openReadSource(cmd *cobra.Command, args []string, cfg *config.Config) (readsrc.Source, error) {
	rPolicy := toReadsrcNPolicy(cfg.NPolicy)

	if n := getFlagNonNegativeInt(cmd, "random-reads"); n > 0 {
		length := getFlagPositiveInt(cmd, "random-read-len")
		return readsrc.NewRandomSource(uint64(cfg.Seed), n, length, rPolicy), nil
	}

	files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
	path := files[0]

	if getFlagBool(cmd, "raw") {
		return readsrc.NewRawSource(path, rPolicy)
	}

	solexa := getFlagBool(cmd, "solexa-quals")
	return readsrc.NewFastxSource(path, rPolicy, solexa, cfg.Trim5, cfg.Trim3, cfg.MaxNs)
}

func toReadsrcNPolicy(p config.NPolicy) readsrc.NPolicy {
	if p == config.NToA {
		return readsrc.NToA
	}
	return readsrc.NMatchesNothing
}

func init() {
	RootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringP("index", "x", "",
		formatFlagUsage(`Index path prefix, as produced by 'fmap index -O'.`))
	alignCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Output file ("-" for stdout, ".gz" for gzip).`))
	alignCmd.Flags().StringP("sink-mode", "", "full",
		formatFlagUsage(`Output format: full, concise, or none.`))

	alignCmd.Flags().StringP("mode", "M", "seeded",
		formatFlagUsage(`Search mode: exact, 1mm, 2mm, 3mm, seeded.`))
	alignCmd.Flags().IntP("seed-len", "l", 28,
		formatFlagUsage(`Seed length, seeded mode only (>=20).`))
	alignCmd.Flags().IntP("seed-mismatches", "n", 2,
		formatFlagUsage(`Max mismatches within the seed, seeded mode only (0-3).`))
	alignCmd.Flags().IntP("qual-thresh", "e", 70,
		formatFlagUsage(`Max summed mismatch quality (x10) tolerated, quality-aware modes.`))

	alignCmd.Flags().BoolP("one-hit", "k", false,
		formatFlagUsage(`Report only one pseudo-random hit per read instead of all hits.`))
	alignCmd.Flags().BoolP("no-revcomp", "", false,
		formatFlagUsage(`Don't also search the reverse complement strand.`))

	alignCmd.Flags().IntP("trim5", "", 0, formatFlagUsage(`Trim this many bases from the 5' end.`))
	alignCmd.Flags().IntP("trim3", "", 0, formatFlagUsage(`Trim this many bases from the 3' end.`))
	alignCmd.Flags().IntP("max-ns", "", 0, formatFlagUsage(`Reject reads with more than this many N bases (0 disables).`))
	alignCmd.Flags().BoolP("n-to-a", "", false, formatFlagUsage(`Treat N bases as A on ingestion instead of as unmatchable.`))
	alignCmd.Flags().BoolP("solexa-quals", "", false, formatFlagUsage(`Rescale FASTQ quality values from Solexa to Phred.`))
	alignCmd.Flags().BoolP("raw", "", false, formatFlagUsage(`Read one raw sequence per line instead of FASTA/Q.`))

	alignCmd.Flags().IntP("max-backtracks", "", 0,
		formatFlagUsage(`Per-read backtrack budget, seeded mode only (0 for the default of 100).`))
	alignCmd.Flags().Int64P("seed", "", 1, formatFlagUsage(`PRNG seed for --one-hit and synthetic reads.`))
	alignCmd.Flags().BoolP("assume-same-length", "", false,
		formatFlagUsage(`Declare that all reads share one length; stored in the configuration, no search step reads it.`))
	alignCmd.Flags().BoolP("sanity-check", "", false,
		formatFlagUsage(`Re-verify each hit against the reference directly (fmap_sanity builds only; no-op otherwise).`))

	alignCmd.Flags().IntP("random-reads", "", 0,
		formatFlagUsage(`Generate this many synthetic reads instead of reading a file, for benchmarking.`))
	alignCmd.Flags().IntP("random-read-len", "", 36,
		formatFlagUsage(`Length of generated synthetic reads.`))
	alignCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of read-file paths, one per line.`))

	alignCmd.SetUsageTemplate(usageTemplate(" -x <index prefix> [reads.fq[.gz] | -X <file list>]"))
}
