package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flopo/quotedetect/internal/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule files",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <rules.yaml>",
	Short: "Validate a rule file without running detection",
	Long: `Validate parses the rule file and runs full semantic validation:
vocabulary checks on relation labels, POS tags and feature names, and
bound-name resolution for every action. The first invalid rule is
reported and the file is rejected as a whole.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: OK (%d quote rules, %d actor rules)\n",
			args[0], len(rs.Quote), len(rs.Actor))
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}
