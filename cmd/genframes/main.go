// Command genframes renders placeholder frame assets: a festive border around
// a transparent photo well, in both orientations.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"

	"github.com/youruser/frameapp/internal/util"
)

type frameSize struct {
	name string
	w, h int
}

var frames = []frameSize{
	{"frame_vertical.png", 1080, 1920},
	{"frame_horizontal.png", 1920, 1080},
}

func main() {
	dir := flag.String("out", "assets", "output directory")
	flag.Parse()

	if err := util.EnsureDir(*dir); err != nil {
		fmt.Fprintln(os.Stderr, "genframes:", err)
		os.Exit(1)
	}
	for _, f := range frames {
		path := filepath.Join(*dir, f.name)
		if err := renderFrame(path, f.w, f.h); err != nil {
			fmt.Fprintln(os.Stderr, "genframes:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
	}
}

// renderFrame draws a w x h frame whose inner rounded well is left fully
// transparent.
func renderFrame(path string, w, h int) error {
	dc := gg.NewContext(w, h)
	defer dc.Close()

	fw, fh := float64(w), float64(h)
	border := math.Round(math.Min(fw, fh) * 0.06)
	radius := border

	// Border ring: outer rect minus the well, even-odd.
	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetRGB(0.07, 0.32, 0.2)
	dc.DrawRectangle(0, 0, fw, fh)
	dc.DrawRoundedRectangle(border, border, fw-2*border, fh-2*border, radius)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill border: %w", err)
	}

	// Inner trim.
	dc.SetFillRule(gg.FillRuleNonZero)
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(border / 6)
	inset := border * 0.75
	dc.DrawRoundedRectangle(inset, inset, fw-2*inset, fh-2*inset, radius)
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("stroke trim: %w", err)
	}

	// Baubles along the top and bottom edges.
	palette := []gg.RGBA{gg.RGB(0.95, 0.77, 0.2), gg.RGB(0.9, 0.9, 0.95), gg.RGB(0.8, 0.1, 0.1)}
	n := int(fw / (border * 2))
	for i := range n {
		x := border + float64(i)*(fw-2*border)/float64(max(n-1, 1))
		dc.SetColor(palette[i%len(palette)].Color())
		dc.DrawCircle(x, border/2, border/4)
		dc.DrawCircle(x, fh-border/2, border/4)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("fill baubles: %w", err)
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
