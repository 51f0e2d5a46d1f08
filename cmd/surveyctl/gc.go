package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc <respondent-id>",
	Short: "Purge soft-deleted answers and dependency edges for a respondent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl gc: invalid respondent id %q: %v", args[0], err)
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		if err := eng.RemoveDeleted(rootCtx, respondentID); err != nil {
			fatalf("surveyctl gc: %v", err)
		}
		fmt.Printf("purged soft-deleted rows for respondent %d\n", respondentID)
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
