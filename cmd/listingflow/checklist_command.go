package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ListingFlow/internal/checklist"
)

func newChecklistCommand(ctx *commandContext) *cobra.Command {
	var resultPath string

	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Print the review checklist, or evaluate a result file against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.ensureConfig()
			def, err := checklist.Load(cfg.Checklist.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if resultPath == "" {
				var rows [][]string
				for _, cat := range def.Categories {
					for _, item := range cat.Items {
						rows = append(rows, []string{cat.Name, item.ID, item.Label, yesNo(item.Required)})
					}
				}
				fmt.Fprintf(out, "Checklist version %s\n", def.Version)
				fmt.Fprintln(out, renderTable([]string{"Category", "ID", "Label", "Required"}, rows, nil))
				return nil
			}

			raw, err := os.ReadFile(resultPath)
			if err != nil {
				return fmt.Errorf("read result: %w", err)
			}
			result, err := checklist.ParseResult(raw)
			if err != nil {
				return err
			}
			result, err = checklist.Validate(result, def)
			if err != nil {
				return err
			}
			eval := checklist.Evaluate(result, def)
			rows := [][]string{
				{"Score", strconv.Itoa(eval.Score) + "%"},
				{"Passed", fmt.Sprintf("%d of %d evaluated (%d items)", eval.Passed, eval.Evaluated, eval.Total)},
				{"Can approve", yesNo(eval.CanApprove)},
			}
			if len(eval.FailingRequired) > 0 {
				rows = append(rows, []string{"Failing required", strings.Join(eval.FailingRequired, ", ")})
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&resultPath, "result", "", "YAML file mapping item ids to {verdict, note}")
	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
