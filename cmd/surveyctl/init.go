package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/surveyflow/engine/internal/displaykey"
)

var initCmd = &cobra.Command{
	Use:   "init <respondent-id> <step-display-order>",
	Short: "Materialize a respondent's initial ungated answers for one step",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl init: invalid respondent id %q: %v", args[0], err)
		}
		stepOrder, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fatalf("surveyctl init: invalid step display order %q: %v", args[1], err)
		}

		eng, snap, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		initialKey := displaykey.New(uint16(snap.SurveyID()), uint16(stepOrder), 1, 0, 0, 0, 0)

		if err := eng.Init(rootCtx, respondentID, initialKey); err != nil {
			fatalf("surveyctl init: %v", err)
		}
		fmt.Printf("initialized respondent %d for step %d\n", respondentID, stepOrder)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
