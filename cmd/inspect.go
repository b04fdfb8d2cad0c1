package cmd

import (
	"fmt"

	"github.com/bioforge/fmap/fmindex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print summary information about an FM-index",
	Long: `Print summary information about an FM-index

Loads the forward index (and, with --mirror, the mirror index) built by
'fmap index' and prints its reference list and basic dimensions,
without running any search.
`,
	Run: func(cmd *cobra.Command, args []string) {
		indexPrefix := getFlagString(cmd, "index")
		if indexPrefix == "" {
			checkError(fmt.Errorf("flag -x/--index is needed"))
		}
		mirror := getFlagBool(cmd, "mirror")

		idx, err := fmindex.Load(indexPrefix, mirror)
		checkError(errors.Wrap(err, "loading index"))
		defer idx.Evict()

		fmt.Println(idx.String())
		fmt.Println()
		fmt.Printf("%-6s\t%-30s\t%s\n", "ref", "name", "length")
		for i, info := range idx.RefSeqInfos() {
			fmt.Printf("%-6d\t%-30s\t%d\n", i, info.Name, info.Length)
		}
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("index", "x", "", formatFlagUsage(`Index path prefix.`))
	inspectCmd.Flags().BoolP("mirror", "", false, formatFlagUsage(`Inspect the mirror index instead of the forward one.`))
	inspectCmd.SetUsageTemplate(usageTemplate(" -x <index prefix>"))
}
