package cmd

import (
	"context"
	"fmt"

	"github.com/skimsearch/skim/pkg/config"
	"github.com/skimsearch/skim/pkg/render"
	"github.com/skimsearch/skim/pkg/search"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search indexed corpus pages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Specific corpus directory to search",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchPages(c.String("config"), c.String("query"), c.String("dir"), c.Int("limit"))
		},
	}
}

// searchPages searches the page index from the terminal
func searchPages(configPath, query, dir string, limit int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			fmt.Printf("Warning: failed to close index: %v\n", err)
		}
	}()

	service := search.NewService(index)
	params := search.Params{Query: query, Limit: limit, Page: 1}

	dirs := cfg.CorpusDirs
	if dir != "" {
		dirs = []string{dir}
	}

	totalResults := 0
	for _, d := range dirs {
		results, err := service.Search(d, params)
		if err != nil {
			return fmt.Errorf("searching %s: %w", d, err)
		}
		if len(results) == 0 {
			continue
		}

		totalResults += len(results)
		fmt.Printf("\n=== %s (%d results) ===\n", d, len(results))
		for i, page := range results {
			fmt.Printf("%d. %s (%s)\n", i+1, page.Title, page.Name)
			if page.Text != "" {
				fmt.Printf("   %s\n", render.Truncate(page.Text, 160))
			}
		}
	}

	if totalResults == 0 {
		fmt.Println("No results found")
	} else {
		fmt.Printf("\nTotal: %d results across %d directories\n", totalResults, len(dirs))
	}

	return nil
}
