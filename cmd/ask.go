package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askUser string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over ingested documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.pipe.Ask(cmd.Context(), askUser, args[0], nil, nil)
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if len(ans.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range ans.Citations {
				fmt.Printf("  - %s (chunk %d)\n", c.DocID, c.Seq)
			}
		}
		if ans.Degraded {
			fmt.Println("\n(The model backend was unavailable; this is a fallback response.)")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "cli", "owner whose documents are consulted")
	rootCmd.AddCommand(askCmd)
}
