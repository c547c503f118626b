package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightpath/assistant/core/intent"
)

var (
	trainSamples string
	trainOut     string
	trainMock    bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train intent centroids from labeled samples",
	Long:  `Train embeds labeled example messages and saves one centroid per intent for the statistical classification stage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(trainSamples)
		if err != nil {
			return fmt.Errorf("read samples file: %w", err)
		}

		// Samples file maps intent label to example messages.
		var byIntent map[string][]string
		if err := yaml.Unmarshal(data, &byIntent); err != nil {
			return fmt.Errorf("parse samples file: %w", err)
		}

		var samples []intent.Sample
		for label, texts := range byIntent {
			in, ok := intent.ParseIntent(label)
			if !ok {
				return fmt.Errorf("unknown intent label %q", label)
			}
			for _, text := range texts {
				samples = append(samples, intent.Sample{Text: text, Intent: in})
			}
		}
		if len(samples) == 0 {
			return fmt.Errorf("no samples in %s", trainSamples)
		}

		a, err := buildApp(trainMock, "")
		if err != nil {
			return err
		}
		defer a.close()

		stage := intent.NewCentroidStage(a.embedder, 0)
		if err := stage.Train(cmd.Context(), samples); err != nil {
			return fmt.Errorf("train centroids: %w", err)
		}

		if err := intent.SaveCentroids(trainOut, stage.Centroids()); err != nil {
			return fmt.Errorf("save centroids: %w", err)
		}

		fmt.Printf("trained %d centroids from %d samples, wrote %s\n",
			stage.CentroidCount(), len(samples), trainOut)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainSamples, "samples", "", "path to YAML samples file")
	trainCmd.Flags().StringVar(&trainOut, "out", "centroids.json", "output path for centroids")
	trainCmd.Flags().BoolVar(&trainMock, "mock", false, "run without provider credentials")
	trainCmd.MarkFlagRequired("samples")
	rootCmd.AddCommand(trainCmd)
}
