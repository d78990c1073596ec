package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/credlens/credcheck/internal/model"
)

var (
	analyzeTitle   string
	analyzeURL     string
	analyzeRefresh bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze one article and print the result as JSON",
	Long:  "Reads article text from the given file, or from stdin when no file is supplied, runs the full verification pipeline once, and prints the analysis result.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text []byte
		var err error
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[0])
			}
		} else {
			text, err = io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "read stdin")
			}
		}
		if len(text) == 0 {
			return eris.New("no article text supplied")
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.AnalysisRequest{
			Text:         string(text),
			Title:        analyzeTitle,
			URL:          analyzeURL,
			ForceRefresh: analyzeRefresh,
		}

		_, raw, _, err := env.Pipeline.Analyze(cmd.Context(), req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		fmt.Println(string(raw))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "article title")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "article source url")
	analyzeCmd.Flags().BoolVar(&analyzeRefresh, "refresh", false, "bypass the response cache")
	rootCmd.AddCommand(analyzeCmd)
}
