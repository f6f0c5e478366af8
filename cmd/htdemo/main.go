// cmd/htdemo/main.go - Interactive preview of a rendered halftone sheet

// A small ebiten application: builds one screen, renders a test sheet of
// horizontal gray bars through the blit engine, and displays the result
// scaled up for inspection. Grounded on the teacher's
// video_backend_ebiten.go output backend, the one place in that repo a
// rendered frame is actually displayed; this is the RIP analogue.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	halftone "github.com/otley-rip/htcore"
)

var (
	flagWidth   = flag.Int("width", 256, "sheet width in pixels")
	flagHeight  = flag.Int("height", 256, "sheet height in pixels")
	flagSpot    = flag.String("spot", "SimpleDot", "registered spot function name")
	flagFreq    = flag.Float64("freq", 60, "screen frequency (informational)")
	flagScale   = flag.Int("scale", 2, "preview window scale factor")
)

type demoGame struct {
	engine  *halftone.Engine
	raster  *halftone.Raster
	preview *ebiten.Image
	width   int
	height  int
	scale   int
}

func (g *demoGame) Update() error { return nil }

func (g *demoGame) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.preview, op)
}

func (g *demoGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width * g.scale, g.height * g.scale
}

func main() {
	flag.Parse()

	cfg := halftone.DefaultEngineConfig()
	cfg.Logger = log.New(os.Stderr, "htdemo: ", log.LstdFlags)
	engine := halftone.NewEngine(cfg)
	defer engine.Close()

	basis := halftone.CellBasis{R1: 8, R2: 0, R3: 0, R4: 8, XDims: 8, YDims: 8}
	spotFn, ok := engine.SpotFns.Get(*flagSpot)
	if !ok {
		fmt.Fprintf(os.Stderr, "htdemo: unknown spot function %q\n", *flagSpot)
		os.Exit(1)
	}
	xcoords, ycoords, halfys, err := halftone.GenerateCoordsFromSpot(spotFn, basis, 64, true)
	if err != nil {
		log.Fatalf("htdemo: generate coords: %v", err)
	}

	def := halftone.ScreenDef{
		SpotName:     *flagSpot,
		ObjType:      halftone.ObjFill,
		ColorantName: "K",
		CellBasis:    basis,
		EXDims:       basis.XDims * 4,
		EYDims:       basis.YDims * 4,
		Frequency:    *flagFreq,
		DepthShift:   halftone.Depth1,
		Notones:      32,
		GenerateCoords: func() ([]int, []int, []int, []int, error) {
			return xcoords, ycoords, nil, halfys, nil
		},
	}
	s, err := engine.InsertScreen(1, halftone.ObjFill, 0, def)
	if err != nil {
		log.Fatalf("htdemo: insert screen: %v", err)
	}

	const dl = halftone.EraseNr(1)
	if err := engine.Introduce(dl); err != nil {
		log.Fatalf("htdemo: introduce: %v", err)
	}
	if err := engine.MarkAllLevelsUsed(s, dl, false); err != nil {
		log.Printf("htdemo: mark all levels used: %v", err)
	}

	raster := halftone.NewRaster(*flagWidth, *flagHeight, halftone.Depth1)
	raster.AddChannel("K")
	rs := halftone.NewRenderState(raster.Channels["K"], halftone.ClipNone, nil)

	barHeight := *flagHeight / 32
	if barHeight < 1 {
		barHeight = 1
	}
	for tint := 0; tint < 32; tint++ {
		y0 := tint * barHeight
		y1 := y0 + barHeight
		if y1 > *flagHeight {
			y1 = *flagHeight
		}
		if err := engine.BlitBlock(rs, s, dl, tint, y0, y1-1, 0, *flagWidth-1); err != nil {
			log.Printf("htdemo: blit tint %d: %v", tint, err)
		}
	}

	gray, _ := raster.ToGray("K")
	preview := ebiten.NewImageFromImage(image.Image(gray))

	ebiten.SetWindowSize(*flagWidth**flagScale, *flagHeight**flagScale)
	ebiten.SetWindowTitle("htdemo")
	game := &demoGame{engine: engine, raster: raster, preview: preview, width: *flagWidth, height: *flagHeight, scale: *flagScale}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatalf("htdemo: %v", err)
	}
}
