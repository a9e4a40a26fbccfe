package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 32

// iconPNG draws the tray icon: a filled disc with a calendar-like band.
func iconPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	c := float64(iconSize-1) / 2
	r2 := c * c
	body := color.RGBA{0x30, 0x78, 0xC0, 0xFF}
	band := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy > r2 {
				continue
			}
			if y >= 10 && y <= 12 {
				img.Set(x, y, band)
			} else {
				img.Set(x, y, body)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds PNG data in a single-image ICO container.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{iconSize, iconSize, 0, 0, 1, 32, uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

// Icon returns the tray icon in the platform's preferred format.
func Icon() []byte {
	p := iconPNG()
	if runtime.GOOS == "windows" {
		return wrapICO(p)
	}
	return p
}
