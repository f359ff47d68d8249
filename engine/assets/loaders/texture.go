package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

// TextureLoader decodes PNG and JPEG files into RGBA8 pixels.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	flip := false
	if p, ok := params.(*metadata.ImageParams); ok && p != nil {
		flip = p.FlipY
	}
	data := ToRGBA(img, flip)
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (tl *TextureLoader) Unload(*metadata.Resource) error {
	return nil
}

// ToRGBA converts any image to tightly packed RGBA8 rows.
func ToRGBA(img image.Image, flipY bool) *metadata.ImageData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	if flipY {
		stride := rgba.Stride
		row := make([]byte, stride)
		for top, bottom := 0, rgba.Rect.Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
			a := rgba.Pix[top*stride : (top+1)*stride]
			b := rgba.Pix[bottom*stride : (bottom+1)*stride]
			copy(row, a)
			copy(a, b)
			copy(b, row)
		}
	}
	return &metadata.ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}
}
