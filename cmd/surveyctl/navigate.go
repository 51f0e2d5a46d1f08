package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <respondent-id> <section-display-key>",
	Short: "Show the ordered section list and the current section's neighbors",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		respondentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("surveyctl navigate: invalid respondent id %q: %v", args[0], err)
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		items, current, err := eng.Navigate(rootCtx, respondentID, args[1])
		if err != nil {
			fatalf("surveyctl navigate: %v", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(struct {
				Items   interface{} `json:"items"`
				Current interface{} `json:"current"`
			}{items, current})
			return
		}

		active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
		plain := lipgloss.NewStyle()
		for _, it := range items {
			style := plain
			if current != nil && it.Path == current.Path {
				style = active
			}
			fmt.Println(style.Render(fmt.Sprintf("%-34s %s", it.Path, it.Name)))
		}
	},
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}
