package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var coverInk = color.NRGBA{R: 0x26, G: 0x26, B: 0x26, A: 0xff}

// GenerateCover rasterizes SVG background template to the requested size,
// draws title and subtitle over it and returns resulting PNG.
func GenerateCover(template []byte, title, subtitle string, width, height int) ([]byte, error) {
	background, err := RasterizeSVGToImage(template, width, height)
	if err != nil {
		return nil, fmt.Errorf("unable to rasterize cover template: %w", err)
	}

	canvas := imaging.New(width, height, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	canvas = imaging.PasteCenter(canvas, background)

	titleFace, err := newFace(gobold.TTF, float64(height)*0.045)
	if err != nil {
		return nil, err
	}
	defer titleFace.Close()

	subtitleFace, err := newFace(goregular.TTF, float64(height)*0.028)
	if err != nil {
		return nil, err
	}
	defer subtitleFace.Close()

	// Title goes inside the central frame, wrapped to fit.
	maxLineWidth := int(float64(width) * 0.8)
	lineHeight := titleFace.Metrics().Height.Ceil()

	y := int(float64(height) * 0.3)
	for _, line := range wrapText(titleFace, title, maxLineWidth) {
		drawCentered(canvas, titleFace, line, width/2, y, coverInk)
		y += lineHeight
	}

	if len(subtitle) > 0 {
		drawCentered(canvas, subtitleFace, subtitle, width/2, int(float64(height)*0.815), coverInk)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode cover image: %w", err)
	}
	return buf.Bytes(), nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	fnt, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("unable to parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("unable to prepare font face: %w", err)
	}
	return face, nil
}

// wrapText breaks text into lines not wider than maxWidth. A single word
// wider than maxWidth stays on its own line.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		lines []string
		cur   = words[0]
	)
	for _, word := range words[1:] {
		next := cur + " " + word
		if font.MeasureString(face, next).Ceil() <= maxWidth {
			cur = next
			continue
		}
		lines = append(lines, cur)
		cur = word
	}
	return append(lines, cur)
}

func drawCentered(dst draw.Image, face font.Face, text string, centerX, baselineY int, ink color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
	}
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(centerX-w/2, baselineY)
	d.DrawString(text)
}
