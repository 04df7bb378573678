package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/sharecode"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Encode and decode shareable case codes",
}

var shareEncodeCmd = &cobra.Command{
	Use:   "encode <case-id>",
	Short: "Print the share code for a saved case",
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
		code, err := sharecode.Encode(doc)
		if err != nil {
			return fmt.Errorf("encoding share code: %w", err)
		}
		fmt.Println(code)
		return nil
	},
}

var shareDecodeCmd = &cobra.Command{
	Use:   "decode <code>",
	Short: "Decode a share code and save the case locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		doc, err := sharecode.Decode(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "The share code could not be read. Ask for a fresh link.")
			return err
		}

		database, records, err := openRecords(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		records.SaveCase(doc)
		fmt.Printf("Imported case %q as %s\n", doc.Title, doc.ID)
		return nil
	},
}

func init() {
	shareCmd.AddCommand(shareEncodeCmd)
	shareCmd.AddCommand(shareDecodeCmd)
	rootCmd.AddCommand(shareCmd)
}
