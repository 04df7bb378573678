package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/export"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Manage saved cases",
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, records, err := openRecords(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		docs := records.SavedCases()
		if len(docs) == 0 {
			fmt.Println("No saved cases.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-40s %s / %s\n", d.ID, d.Title, d.Discipline, d.Difficulty)
		}
		return nil
	},
}

var casesExportCmd = &cobra.Command{
	Use:   "export <case-id>",
	Short: "Export a saved case as markdown or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, records, err := openRecords(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		doc, ok := records.SavedCase(args[0])
		if !ok {
			return fmt.Errorf("no saved case with id %q", args[0])
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "markdown":
			fmt.Print(export.Markdown(doc, nil))
		case "html":
			page, err := export.HTML(doc, nil)
			if err != nil {
				return fmt.Errorf("rendering HTML: %w", err)
			}
			fmt.Print(page)
		default:
			return fmt.Errorf("unknown format %q: must be markdown or html", format)
		}
		return nil
	},
}

var casesDeleteCmd = &cobra.Command{
	Use:   "delete <case-id>",
	Short: "Delete a saved case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, records, err := openRecords(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		if _, ok := records.SavedCase(args[0]); !ok {
			fmt.Fprintf(os.Stderr, "No saved case with id %q\n", args[0])
			return nil
		}
		records.DeleteCase(args[0])
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	casesExportCmd.Flags().String("format", "markdown", "output format: markdown or html")
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesExportCmd)
	casesCmd.AddCommand(casesDeleteCmd)
	rootCmd.AddCommand(casesCmd)
}
