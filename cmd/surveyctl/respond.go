package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var respondAsDate bool

func init() {
	respondCmd.Flags().BoolVar(&respondAsDate, "date", false, "Parse value as a natural-language date (e.g. \"next friday\") before saving")
	rootCmd.AddCommand(respondCmd)
}

var respondCmd = &cobra.Command{
	Use:   "respond <respondent-id> <display-key> [value]",
	Short: "Save an answer and run the full propagation cycle",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl respond: invalid respondent id %q: %v", args[0], err)
		}
		displayKey := args[1]

		var value string
		if len(args) == 3 {
			value = args[2]
		} else if term.IsTerminal(int(os.Stdin.Fd())) {
			value = promptForValue(displayKey)
		} else {
			fatalf("surveyctl respond: a value is required when stdin is not a terminal")
		}

		if respondAsDate {
			parsed, err := parseNaturalDate(value)
			if err != nil {
				fatalf("surveyctl respond: %v", err)
			}
			value = parsed
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		a, err := eng.SaveAnswer(rootCtx, respondentID, displayKey, &value)
		if err != nil {
			fatalf("surveyctl respond: %v", err)
		}
		fmt.Printf("saved %s = %q\n", a.DisplayKey.String(), value)
	},
}

// promptForValue renders a single-field interactive form for displayKey
// using huh.NewForm.
func promptForValue(displayKey string) string {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(displayKey).
				Value(&value).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("value is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		fatalf("surveyctl respond: %v", err)
	}
	return value
}

// parseNaturalDate resolves conversational date input (e.g. "next friday",
// "in 3 days") into the canonical RFC3339 date surveyflow DATE answers
// store.
func parseNaturalDate(input string) (string, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(input, time.Now())
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", input, err)
	}
	if result == nil {
		return "", fmt.Errorf("could not understand date %q", input)
	}
	return result.Time.Format("2006-01-02"), nil
}
