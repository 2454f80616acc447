package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/spf13/cobra"
)

var (
	askMode     string
	askQuizType string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask one question against the persisted index",
	Example: `  recall ask "explain backpropagation"
  recall ask --mode quiz --quiz-type multiple_choice "regularisation"`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: usePersistedIndex,
	RunE:    runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", string(queryModel.ModeSummary), "summary or quiz")
	askCmd.Flags().StringVar(&askQuizType, "quiz-type", "", "multiple_choice or short_answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, settings)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.rag.Handle(ctx, queryModel.Request{
		Query:    strings.Join(args, " "),
		Mode:     queryModel.ParseMode(askMode),
		QuizType: queryModel.ParseQuizType(askQuizType),
	})

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if resp.Refused() {
		return fmt.Errorf("%s (%s)", resp.Refusal.Message, resp.Refusal.Reason)
	}

	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(resp.Sources, ", "))
	}
	if resp.Pathway == queryModel.PathwayEmptyContext {
		fmt.Fprintln(out, "\n(no lecture content matched; run `recall ingest` first)")
	}
	return nil
}
