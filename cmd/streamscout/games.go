package main

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"streamscout/pkg/ui"
)

var gamesLimit int

// gamesCmd represents the games command
var gamesCmd = &cobra.Command{
	Use:   "games <query>",
	Short: "Look up category names and ids",
	Long: `Search Twitch categories so the exact name or id can be passed to
'streamscout search --game' or '--game-id'.`,
	Example: `  streamscout games "just chatting"
  streamscout games minecraft -n 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGames,
}

func init() {
	rootCmd.AddCommand(gamesCmd)
	gamesCmd.Flags().IntVarP(&gamesLimit, "limit", "n", 10, "maximum number of categories to show (1-100)")
}

func runGames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(credentialFlags(), false)
	if err != nil {
		return err
	}
	if err := resolveCredentials(cfg); err != nil {
		return err
	}

	client := newHelixClient(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Twitch.Timeout)
	defer cancel()

	query := strings.Join(args, " ")
	games, err := client.SearchCategories(ctx, query, gamesLimit)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		ui.PrintWarning("No categories match", query)
		return nil
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "Name", "ID"})
	for i, g := range games {
		t.AppendRow(table.Row{i + 1, g.Name, g.ID})
	}
	t.Render()
	return nil
}
