package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/skills-handbook/internal/usecase/seed"
)

var datasetPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Recreate both collections and load the example memories",
	Long: `seed drops the positive and negative collections if they exist, recreates them
with the configured vector size and upserts every example with its embedding.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ds, err := loadDataset(datasetPath)
		if err != nil {
			return err
		}

		svc, logger, err := newService()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		reports, err := svc.Seed(cmd.Context(), positiveName, negativeName, ds)
		out := cmd.OutOrStdout()
		for _, r := range reports {
			fmt.Fprintf(out, "%s collection %q: inserted %d, now holds %d points\n",
				r.Label, r.Collection, r.Inserted, r.Count)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Done.")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "YAML dataset file (default: built-in examples)")
}

func loadDataset(path string) (seed.Dataset, error) {
	if path == "" {
		return seed.DefaultDataset(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return seed.Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return seed.ParseDataset(data)
}
