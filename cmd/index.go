package cmd

import (
	"context"
	"fmt"

	"github.com/skimsearch/skim/pkg/config"
	"github.com/urfave/cli/v3"
)

// IndexCommand creates the index command
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index corpus pages into the search database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Index a single corpus directory instead of all configured ones",
			},
			&cli.BoolFlag{
				Name:  "optimize",
				Usage: "Optimize the search database after indexing",
				Value: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return indexCorpus(c.String("config"), c.String("dir"), c.Bool("optimize"))
		},
	}
}

// indexCorpus (re)builds the page index from the configured corpus directories
func indexCorpus(configPath, onlyDir string, optimize bool) error {
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

	dirs := cfg.CorpusDirs
	if onlyDir != "" {
		dirs = []string{onlyDir}
	}

	total := 0
	for _, dir := range dirs {
		count, err := indexCorpusDir(index, dir)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d pages from %s\n", count, dir)
		total += count
	}

	if optimize {
		if err := index.Optimize(); err != nil {
			return fmt.Errorf("optimizing index: %w", err)
		}
	}

	fmt.Printf("Total: %d pages across %d directories\n", total, len(dirs))
	return nil
}
