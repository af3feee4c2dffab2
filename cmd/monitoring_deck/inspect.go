package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/pptx"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect deck.pptx...",
	Short: "Summarize the slides of a deck",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func outline(d *deck.Deck) []observability.SlideOutline {
	out := make([]observability.SlideOutline, 0, d.Len())
	for i, s := range d.Slides {
		o := observability.SlideOutline{Index: i + 1, Background: s.Background}
		if t := s.Title(); t != nil {
			o.Title = t.Text
		}
		for _, sh := range s.Shapes {
			switch sh.Kind() {
			case deck.KindPlaceholder:
				o.Placeholders++
			case deck.KindPicture:
				o.Pictures++
			default:
				o.Generic++
			}
		}
		out = append(out, o)
	}
	return out
}

func runInspect(cmd *cobra.Command, args []string) error {
	printer := observability.NewPrinter(cmd.OutOrStdout())
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read deck: %w", err)
		}
		d, err := pptx.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		printer.PrintDeckOutline(filepath.Base(path), outline(d))
	}
	return nil
}
