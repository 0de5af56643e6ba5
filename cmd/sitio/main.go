package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mutualangaco/sitio/cmd/sitio/internal/noticias"
	"github.com/mutualangaco/sitio/cmd/sitio/internal/serve"
	"github.com/mutualangaco/sitio/internal/config"
	"github.com/mutualangaco/sitio/internal/logging"
	"github.com/mutualangaco/sitio/internal/media"
	"github.com/mutualangaco/sitio/internal/news"
)

type CLI struct {
	Config  string `help:"YAML settings file." default:"sitio.yaml" type:"path" short:"c"`
	EnvFile string `help:"Environment file loaded before the process environment." default:".env" name:"env-file" type:"path"`

	Serve    serve.Cmd    `cmd:"" help:"Serve the site and its API."`
	Seed     SeedCmd      `cmd:"" help:"Create the news document with the initial records."`
	Noticias noticias.Cmd `cmd:"" help:"List, show and edit news records on a running server."`
	Version  VersionCmd   `cmd:"" help:"Print version information."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

type SeedCmd struct{}

func (c *SeedCmd) Run(cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	store := news.NewStore(cfg.NewsFile,
		media.NewStore(cfg.SiteDir, cfg.ImageDir, logger),
		news.WithLogger(logger),
		news.WithDefaultAuthor(cfg.Org.Name))

	err := store.Seed(context.Background(), news.DefaultRecords())
	if errors.Is(err, news.ErrAlreadySeeded) {
		fmt.Printf("%s already exists, nothing to do\n", cfg.NewsFile)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %d records to %s\n", news.RecordCount, cfg.NewsFile)
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sitio"),
		kong.Description("Mutual Angaco website backend."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config, cli.EnvFile)
	ctx.FatalIfErrorf(err)
	ctx.Bind(cfg)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
