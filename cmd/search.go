package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"activity-rag/internal/helper"
	"activity-rag/internal/llmservice"
	"activity-rag/internal/models"
)

var (
	searchTopK      int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the chunks that best match a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the retrieved context only",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, askCmd} {
		c.Flags().IntVarP(&searchTopK, "top-k", "k", -1, "number of chunks to retrieve (default rag.top_k)")
		c.Flags().Float64Var(&searchThreshold, "threshold", 0, "drop matches scoring below this value")
		rootCmd.AddCommand(c)
	}
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

func topK() int {
	if searchTopK < 0 {
		return cfg.RAG.TopK
	}
	return searchTopK
}

// threshold prefers an explicit --threshold, even zero or negative, over
// rag.score_threshold.
func threshold(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("threshold") {
		return searchThreshold
	}
	return cfg.RAG.ScoreThreshold
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.retriever()
	if err != nil {
		return err
	}
	results, err := r.Search(ctx, args[0], topK(), threshold(cmd))
	if err != nil {
		return err
	}

	if searchJSON {
		helper.PrettyPrint(cmd.OutOrStdout(), results)
		return nil
	}
	printResults(cmd, results)
	return nil
}

func printResults(cmd *cobra.Command, results []models.RetrievalResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, models.NoContextNotice)
		return
	}
	for i, res := range results {
		fmt.Fprintf(out, "[%d] %s %s (%.3f)\n", i, res.Chunk.SourceCode, res.Chunk.Section, res.Score)
		fmt.Fprintf(out, "    %s\n", helper.Truncate(res.Chunk.Text, 100))
		fmt.Fprintf(out, "    Source: %s\n", res.Chunk.Link)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.retriever()
	if err != nil {
		return err
	}
	grounding, err := r.Ground(ctx, args[0], topK(), threshold(cmd))
	if err != nil {
		return err
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}
	answer, err := gen.Generate(ctx, grounding.System, grounding.Prompt())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nSources:\n", answer)
	printResults(cmd, grounding.Results)
	return nil
}

// newGenerator is swapped in tests for a fake chat model.
var newGenerator = func() (*llmservice.Generator, error) {
	return llmservice.New(&cfg.InferenceLLM)
}
