package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/tm/internal/catalog"
)

var booksSearch string

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the book catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return booksRun()
	},
}

func init() {
	booksCmd.Flags().StringVar(&booksSearch, "search", "", "Filter by title or author")
	rootCmd.AddCommand(booksCmd)
}

func booksRun() error {
	books := catalog.Search(booksSearch)
	if len(books) == 0 {
		ui.Info("No books found.")
		return nil
	}

	table := ui.Table([]string{"#", "Title", "Author", "Price"})
	for _, b := range books {
		_ = table.Append([]string{
			fmt.Sprintf("%d", b.ID),
			b.Title,
			b.Author,
			fmt.Sprintf("₹%d", b.Price),
		})
	}
	_ = table.Render()
	return nil
}
