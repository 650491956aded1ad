package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"time"

	vectorize "github.com/go-vectorize/vectorize"
	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/utils"
	"github.com/pkg/errors"
)

const helpBanner = `
┌─┐┌─┐┬┬─┐┌─┐
│  ├─┤│├┬┘├┤
└─┘┴ ┴┴┴└─└─┘

Raster to SVG vectorization.
    Version: %s

`

// Version is set at build time via -ldflags.
var Version string

var (
	source    = flag.String("in", "", "Source image path")
	dest      = flag.String("out", "", "Destination SVG path")
	backend   = flag.String("backend", "edge", "Backend: edge, centerline, superpixel, dots")
	preset    = flag.String("preset", "", "Named preset (overrides -backend when set)")
	detail    = flag.Float64("detail", 0.5, "Detail level in [0,1]")
	strokePx  = flag.Float64("stroke", 1.5, "Stroke width at 1080p reference height")
	precision = flag.Int("precision", 2, "SVG coordinate precision, 0-4")
	seed      = flag.Uint64("seed", 0, "Master RNG seed")
	refine    = flag.Bool("refine", false, "Enable the error-driven refinement pass")
)

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, helpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *source == "" || *dest == "" {
		flag.Usage()
		log.Fatal(utils.DecorateText("\n-in and -out are both required", utils.ErrorMessage))
	}

	spinner := utils.NewSpinner(
		fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ VECTORIZE", utils.StatusMessage),
			utils.DecorateText("⇢ tracing in progress...", utils.DefaultMessage),
		),
		time.Millisecond*80,
		true,
	)
	spinner.Start()

	now := time.Now()
	err := run()
	if err != nil {
		spinner.StopMsg = fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ VECTORIZE", utils.StatusMessage),
			utils.DecorateText("vectorization failed ✘", utils.ErrorMessage),
		)
		spinner.Stop()
		log.Fatal(utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err), utils.DefaultMessage))
	}

	spinner.StopMsg = fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ VECTORIZE", utils.StatusMessage),
		utils.DecorateText("the image has been vectorized successfully ✔", utils.SuccessMessage),
	)
	spinner.Stop()
	fmt.Fprintf(os.Stderr, "\nWritten to %s in %s\n",
		utils.DecorateText(*dest, utils.SuccessMessage),
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage),
	)
}

func run() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	src, err := openSource(*source)
	if err != nil {
		return errors.Wrap(err, "unable to open source image")
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return errors.Wrap(err, "unable to decode source image")
	}

	nrgba := image.NewNRGBA(img.Bounds())
	draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)
	r, err := raster.FromNRGBA(nrgba)
	if err != nil {
		return err
	}

	result, err := vectorize.Vectorize(r, cfg)
	if err != nil {
		return err
	}

	out, err := os.Create(*dest)
	if err != nil {
		return errors.Wrap(err, "unable to create destination file")
	}
	defer out.Close()

	if _, err := out.WriteString(result.SVG); err != nil {
		return errors.Wrap(err, "unable to write SVG output")
	}
	return nil
}

// openSource accepts either a local path or an http(s) URL, downloading the
// latter to a temporary file first.
func openSource(path string) (*os.File, error) {
	if utils.IsValidUrl(path) {
		return utils.DownloadImage(path)
	}
	return os.Open(path)
}

func buildConfig() (*config.Config, error) {
	if *preset != "" {
		return config.Preset(*preset)
	}

	b, err := backendFromName(*backend)
	if err != nil {
		return nil, err
	}

	refineCfg := config.DefaultRefineConfig()
	refineCfg.Enabled = *refine

	return config.NewBuilder(b).
		Detail(*detail).
		StrokeWidth(*strokePx).
		SvgPrecision(*precision).
		MasterSeed(*seed).
		Refine(refineCfg).
		Build()
}

func backendFromName(name string) (config.Backend, error) {
	switch name {
	case "edge":
		return config.BackendEdge, nil
	case "centerline":
		return config.BackendCenterline, nil
	case "superpixel":
		return config.BackendSuperpixel, nil
	case "dots":
		return config.BackendDots, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", name)
	}
}
