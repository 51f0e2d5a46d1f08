package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/surveyflow/engine/internal/survey"
)

var replayConcurrency int64

func init() {
	replayCmd.Flags().Int64Var(&replayConcurrency, "concurrency", 8, "Maximum number of respondents replayed concurrently")
	rootCmd.AddCommand(replayCmd)
}

type replayLine struct {
	respondentID int64
	displayKey   string
	value        string
}

var replayCmd = &cobra.Command{
	Use:   "replay <answers-file>",
	Short: "Replay a batch of saveAnswer calls, one respondent serialized, many respondents concurrent",
	Long: `Each line of answers-file is "respondentID displayKey value". Lines for
the same respondent always run in file order (the Engine's per-respondent
keyedMutex already enforces this); replay's only job is bounding how many
distinct respondents run at once, via golang.org/x/sync/semaphore, so a
large batch doesn't open one goroutine per line.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lines, err := readReplayLines(args[0])
		if err != nil {
			fatalf("surveyctl replay: %v", err)
		}

		byRespondent := make(map[int64][]replayLine)
		var order []int64
		for _, l := range lines {
			if _, seen := byRespondent[l.respondentID]; !seen {
				order = append(order, l.respondentID)
			}
			byRespondent[l.respondentID] = append(byRespondent[l.respondentID], l)
		}

		eng, _, shutdown, err := loadFacade(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = shutdown(rootCtx) }()

		sem := semaphore.NewWeighted(replayConcurrency)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var failures []string

		for _, respondentID := range order {
			respondentID := respondentID
			if err := sem.Acquire(rootCtx, 1); err != nil {
				fatalf("surveyctl replay: %v", err)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				if err := replayRespondent(rootCtx, eng, byRespondent[respondentID]); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Sprintf("respondent %d: %v", respondentID, err))
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		fmt.Printf("replayed %d respondents (%d answers)\n", len(order), len(lines))
		for _, f := range failures {
			fmt.Fprintln(os.Stderr, f)
		}
		if len(failures) > 0 {
			os.Exit(1)
		}
	},
}

func replayRespondent(ctx context.Context, eng *survey.Engine, lines []replayLine) error {
	for _, l := range lines {
		value := l.value
		if _, err := eng.SaveAnswer(ctx, l.respondentID, l.displayKey, &value); err != nil {
			return err
		}
	}
	return nil
}

func readReplayLines(path string) ([]replayLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var lines []replayLine
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		if len(fields) == 0 || fields[0] == "" {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected \"respondentID displayKey value\"", path, lineNo)
		}
		respondentID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid respondent id %q: %w", path, lineNo, fields[0], err)
		}
		lines = append(lines, replayLine{respondentID: respondentID, displayKey: fields[1], value: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
