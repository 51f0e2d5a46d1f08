package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize <respondent-id>",
	Short: "Mark a respondent inactive and stamp finalizedAt (idempotent)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl finalize: invalid respondent id %q: %v", args[0], err)
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		if err := eng.Finalize(rootCtx, respondentID); err != nil {
			fatalf("surveyctl finalize: %v", err)
		}
		fmt.Printf("finalized respondent %d\n", respondentID)
	},
}

func init() {
	rootCmd.AddCommand(finalizeCmd)
}
