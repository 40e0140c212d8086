package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "answer one question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.questions.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Q: %s\nA: %s\n", res.Question, res.Answer)
			fmt.Fprintf(out, "(id=%s, asked %d times, cached=%t)\n", res.ID, res.AskCount, res.Cached)
			return nil
		},
	}
}
