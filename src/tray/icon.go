package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"runtime"

	"github.com/disintegration/imaging"
)

const iconSize = 32

var (
	iconFrame = color.NRGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0xFF}
	iconText  = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
)

// Icon returns the tray icon: ICO on Windows, PNG elsewhere.
func Icon() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, iconImage(), imaging.PNG); err != nil {
		return nil, err
	}
	if runtime.GOOS == "windows" {
		return wrapPNGInICO(buf.Bytes(), iconSize), nil
	}
	return buf.Bytes(), nil
}

// iconImage draws a dashed selection frame around three lines of "text".
func iconImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	frame := image.NewUniform(iconFrame)
	for i := 1; i < iconSize-1; i++ {
		if (i/3)%2 == 1 {
			continue
		}
		for _, p := range []image.Point{
			image.Pt(i, 1), image.Pt(i, 2), image.Pt(i, iconSize-3), image.Pt(i, iconSize-2),
			image.Pt(1, i), image.Pt(2, i), image.Pt(iconSize-3, i), image.Pt(iconSize-2, i),
		} {
			img.Set(p.X, p.Y, frame.C)
		}
	}
	text := image.NewUniform(iconText)
	for _, line := range []image.Rectangle{
		image.Rect(7, 8, 25, 11),
		image.Rect(7, 14, 22, 17),
		image.Rect(7, 20, 18, 23),
	} {
		draw.Draw(img, line, text, image.Point{}, draw.Src)
	}
	return img
}

// wrapPNGInICO builds a single-image ICO container holding pngData.
func wrapPNGInICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}
