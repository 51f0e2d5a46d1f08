package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	glamour "charm.land/glamour/v2"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <respondent-id> <section-display-key>",
	Short: "Render a section's navigation context as markdown",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl show: invalid respondent id %q: %v", args[0], err)
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		items, current, err := eng.Navigate(rootCtx, respondentID, args[1])
		if err != nil {
			fatalf("surveyctl show: %v", err)
		}
		if current == nil {
			fatalf("surveyctl show: no section at %s", args[1])
		}

		var md strings.Builder
		fmt.Fprintf(&md, "# %s\n\n", current.Name)
		if current.Previous != "" {
			fmt.Fprintf(&md, "Previous: `%s`\n\n", current.Previous)
		}
		if current.Next != "" {
			fmt.Fprintf(&md, "Next: `%s`\n\n", current.Next)
		}
		fmt.Fprintf(&md, "---\n\n%d sections total\n", len(items))

		style := "notty"
		if termenv.NewOutput(os.Stdout).EnvColorProfile() != termenv.Ascii {
			style = "dark"
		}
		rendered, err := glamour.Render(md.String(), style)
		if err != nil {
			fatalf("surveyctl show: render: %v", err)
		}
		fmt.Print(rendered)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
