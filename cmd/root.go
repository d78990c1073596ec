package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "credcheck",
	Short: "Article credibility analysis service",
	Long:  "Scores article text for credibility: AI claim extraction with web-search grounding, consensus and fact-check verification, evidence-gated flagged passages, tiered trust scoring.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
