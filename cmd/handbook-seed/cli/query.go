package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
)

var (
	topK         int
	threshold    float64
	skipPositive bool
	skipNegative bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search both collections and print the blocks the hook would inject",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var specs []collection.Spec
		if !skipPositive {
			specs = append(specs, collection.New(positiveName, collection.Positive,
				collection.DefaultPositivePrefix, collection.DefaultPositiveSuffix))
		}
		if !skipNegative {
			specs = append(specs, collection.New(negativeName, collection.Negative,
				collection.DefaultNegativePrefix, collection.DefaultNegativeSuffix))
		}
		if len(specs) == 0 {
			return fmt.Errorf("nothing to query: both collections are skipped")
		}

		svc, logger, err := newService()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		results, err := svc.Query(cmd.Context(), strings.Join(args, " "), specs, topK, threshold)
		out := cmd.OutOrStdout()
		for _, r := range results {
			fmt.Fprintf(out, "== %s (%s): %d hit(s)\n", r.Spec.Name(), r.Spec.Label(), len(r.Hits))
			for _, h := range r.Hits {
				fmt.Fprintf(out, "  %.4f  %s\n", h.Score(), h.ID())
			}
			if r.Block != "" {
				fmt.Fprint(out, r.Block)
			}
		}
		return err
	},
}

func init() {
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", domain.DefaultTopK, "Maximum hits per collection")
	queryCmd.Flags().Float64VarP(&threshold, "threshold", "t", domain.DefaultScoreThreshold, "Minimum similarity score")
	queryCmd.Flags().BoolVar(&skipPositive, "no-positive", false, "Skip the positive collection")
	queryCmd.Flags().BoolVar(&skipNegative, "no-negative", false, "Skip the negative collection")
}
