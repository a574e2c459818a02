package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/haldre/spritemill"
	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
	"github.com/haldre/spritemill/resize"
)

func extractPalette(s *spritemill.Studio, c *cli.Context) (pixel.Palette, error) {
	if c.String("method") == "kmeans" {
		return s.KMeansPaletteOf(c.Args().First(), c.Int("colors"))
	}
	method, err := quant.ParseMethod(c.String("method"))
	if err != nil {
		return nil, err
	}
	return s.PaletteOf(c.Args().First(), c.Int("colors"), method)
}

const defaultStore = "assets"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func processingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "width",
			Usage: "output width, 0 keeps the source width",
		},
		&cli.IntFlag{
			Name:  "height",
			Usage: "output height, 0 keeps the source height",
		},
		&cli.IntFlag{
			Name:  "colors",
			Value: 16,
			Usage: "palette size limit (2-256)",
		},
		&cli.StringFlag{
			Name:  "method",
			Value: "median-cut",
			Usage: "quantization method: median-cut or wu",
		},
		&cli.StringFlag{
			Name:  "scale",
			Value: "nearest",
			Usage: "scaling method: nearest, cubic or lanczos3",
		},
		&cli.BoolFlag{
			Name:  "dither",
			Usage: "apply Floyd-Steinberg dithering",
		},
		&cli.BoolFlag{
			Name:  "opaque",
			Usage: "treat fully transparent pixels as ordinary colors",
		},
		&cli.BoolFlag{
			Name:  "aspect",
			Usage: "preserve aspect ratio, letterboxing to the exact size",
		},
		&cli.Float64Flag{
			Name:  "brightness",
			Usage: "brightness adjustment (-100 to 100)",
		},
		&cli.Float64Flag{
			Name:  "contrast",
			Usage: "contrast adjustment (-100 to 100)",
		},
		&cli.Float64Flag{
			Name:  "saturation",
			Usage: "saturation adjustment (-100 to 100)",
		},
		&cli.Float64Flag{
			Name:  "sharpen",
			Usage: "unsharp mask amount",
		},
	}
}

func buildOptions(c *cli.Context) (spritemill.Options, error) {
	method, err := quant.ParseMethod(c.String("method"))
	if err != nil {
		return spritemill.Options{}, err
	}
	scaling, err := resize.ParseMethod(c.String("scale"))
	if err != nil {
		return spritemill.Options{}, err
	}

	opts := spritemill.Options{
		Width:                c.Int("width"),
		Height:               c.Int("height"),
		ColorLimit:           c.Int("colors"),
		QuantMethod:          method,
		Dithering:            c.Bool("dither"),
		PreserveTransparency: !c.Bool("opaque"),
		Scaling:              scaling,
		PreserveAspectRatio:  c.Bool("aspect"),
	}

	adjust := spritemill.Adjustments{
		Brightness: float32(c.Float64("brightness")),
		Contrast:   float32(c.Float64("contrast")),
		Saturation: float32(c.Float64("saturation")),
		Sharpen:    float32(c.Float64("sharpen")),
	}
	if adjust != (spritemill.Adjustments{}) {
		opts.Adjust = &adjust
	}

	return opts, nil
}

func newStudio(c *cli.Context) (*spritemill.Studio, func(), error) {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	store, err := spritemill.NewDirStore(c.String("store"))
	if err != nil {
		return nil, nil, err
	}

	var db *spritemill.AssetDB
	cleanup := func() {}
	if file := c.String("db"); file != "" {
		if db, err = spritemill.NewAssetDB(file); err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
	}

	return spritemill.New(db, store, logger), cleanup, nil
}

func main() {
	app := cli.NewApp()

	app.Name = "spritemill"
	app.Usage = "pixel-art processing and packaging utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"SPRITEMILL_DB"},
			Usage:   "path to the asset metadata database (optional)",
		},
		&cli.StringFlag{
			Name:    "store",
			EnvVars: []string{"SPRITEMILL_STORE"},
			Value:   defaultStore,
			Usage:   "directory encoded assets are written to",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "process",
			Usage:     "Quantize a single image and store it as PNG",
			ArgsUsage: "FILE",
			Flags:     processingFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				opts, err := buildOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, cleanup, err := newStudio(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer cleanup()

				url, err := s.ProcessFile(c.Args().First(), opts)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Println(url)
				return nil
			},
		},
		{
			Name:      "gif",
			Usage:     "Process frames and assemble them into an animated GIF",
			ArgsUsage: "FILE...",
			Flags: append(processingFlags(),
				&cli.IntFlag{
					Name:  "delay",
					Value: 100,
					Usage: "per-frame delay in milliseconds",
				},
				&cli.BoolFlag{
					Name:  "once",
					Usage: "play the animation once instead of looping",
				},
			),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				opts, err := buildOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, cleanup, err := newStudio(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer cleanup()

				url, err := s.ExportAnimation(context.Background(), c.Args().Slice(), c.Int("delay"), !c.Bool("once"), opts)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Println(url)
				return nil
			},
		},
		{
			Name:      "palette",
			Usage:     "Extract a palette from an image",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "colors",
					Value: 16,
					Usage: "palette size limit (2-256)",
				},
				&cli.StringFlag{
					Name:  "method",
					Value: "median-cut",
					Usage: "extraction method: median-cut, wu or kmeans",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				s, cleanup, err := newStudio(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer cleanup()

				palette, err := extractPalette(s, c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for _, e := range palette {
					if e.A == 0 {
						fmt.Println("transparent")
						continue
					}
					fmt.Printf("#%02X%02X%02X\n", e.R, e.G, e.B)
				}
				return nil
			},
		},
		{
			Name:      "thumbnail",
			Usage:     "Generate a quantized thumbnail",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "size",
					Value: 64,
					Usage: "longer dimension of the thumbnail",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				s, cleanup, err := newStudio(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer cleanup()

				url, err := s.ThumbnailFile(c.Args().First(), c.Int("size"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Println(url)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
