package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mediadeck/client"
)

func newDanmakuCommand() *cobra.Command {
	rootCommand := cobra.Command{
		Use:   "danmaku",
		Short: "Search danmaku sources and manage remembered choices",
	}

	withClient := func(run func(cmd *cobra.Command, c *client.Client, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			_, settings, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := openClient(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			defer c.Close()
			return run(cmd, c, args)
		}
	}

	rootCommand.AddCommand(&cobra.Command{
		Use:   "search <keyword>",
		Short: "Search anime by title",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			animes, err := c.SearchDanmaku(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search %q: %w", args[0], err)
			}
			for i, anime := range animes {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%d] %s (%s, %d episodes)\n",
					i, anime.AnimeID, anime.AnimeTitle, anime.TypeDescription, anime.EpisodeCount)
			}
			return nil
		}),
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "episodes <animeId>",
		Short: "List the episodes of an anime",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			animeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid anime id %q", args[0])
			}
			episodes, err := c.Episodes(cmd.Context(), animeID)
			if err != nil {
				return err
			}
			for i, ep := range episodes {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d. [%d] %s\n", i, ep.EpisodeID, ep.EpisodeTitle)
			}
			return nil
		}),
	})

	var episode int
	auto := &cobra.Command{
		Use:   "auto <title>",
		Short: "Pick a danmaku source for an episode automatically",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			sel, err := c.AutoSelect(cmd.Context(), args[0], episode)
			if err != nil {
				return err
			}
			color.Green("%s / %s", sel.AnimeTitle, sel.EpisodeTitle)
			fmt.Fprintf(cmd.OutOrStdout(), "anime %d, episode %d\n", sel.AnimeID, sel.EpisodeID)
			return nil
		}),
	}
	auto.Flags().IntVar(&episode, "episode", 0, "Zero-based episode index")
	rootCommand.AddCommand(auto)

	var source int
	remember := &cobra.Command{
		Use:   "remember <title>",
		Short: "Use the given search result for a title from now on",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			status, err := c.RememberSource(cmd.Context(), args[0], source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "memory: %s\n", status)
			return nil
		}),
	}
	remember.Flags().IntVar(&source, "source", 0, "Zero-based search result index")
	rootCommand.AddCommand(remember)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "forget [title]",
		Short: "Forget remembered choices for a title, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			return c.Forget(cmd.Context(), title)
		}),
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "memory",
		Short: "List remembered choices",
		RunE: withClient(func(cmd *cobra.Command, c *client.Client, args []string) error {
			records, err := c.MemoryRecords(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range records {
				if rec.EpisodeIndex < 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: source #%d\n", rec.Title, rec.SourceIndex)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s ep %d: episode %d\n", rec.Title, rec.EpisodeIndex, rec.EpisodeID)
			}
			return nil
		}),
	})
	return &rootCommand
}
