package textsteg

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
)

// ImageFormat is a lossless image container that a Grid can be read from and written to.
type ImageFormat int

const (
	FormatUnknown ImageFormat = iota
	FormatPNG
	FormatBMP
	FormatQOI
)

const (
	pngHeader = "\x89PNG\r\n\x1a\n"
	bmpHeader = "BM"
	qoiHeader = "qoif"
)

func (f ImageFormat) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatQOI:
		return "qoi"
	default:
		return "<unknown>"
	}
}

// Extension returns the usual file extension of the format, including the dot.
func (f ImageFormat) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// FormatFromPath picks the image format from the extension of path.
func FormatFromPath(path string) (ImageFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".qoi":
		return FormatQOI, nil
	default:
		return FormatUnknown, &InvalidImageFormatError{Format: ext}
	}
}

// sniffFormat identifies the container from its leading bytes.
func sniffFormat(head []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(head, []byte(pngHeader)):
		return FormatPNG
	case bytes.HasPrefix(head, []byte(qoiHeader)):
		return FormatQOI
	case bytes.HasPrefix(head, []byte(bmpHeader)):
		return FormatBMP
	default:
		return FormatUnknown
	}
}

// Primary methods

// ReadGrid decodes a PNG, BMP or QOI image into a Grid. Colour models other than RGB are converted,
// and any alpha channel is dropped.
func ReadGrid(r io.Reader) (*Grid, ImageFormat, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pngHeader))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, FormatUnknown, &InvalidImageFormatError{InnerError: err}
	}

	format := sniffFormat(head)
	var img image.Image
	switch format {
	case FormatPNG:
		img, err = png.Decode(br)
	case FormatBMP:
		img, err = bmp.Decode(br)
	case FormatQOI:
		img, err = qoi.Decode(br)
	default:
		return nil, FormatUnknown, &InvalidImageFormatError{InnerError: image.ErrFormat}
	}
	if err != nil {
		return nil, format, &InvalidImageFormatError{Format: format.String(), InnerError: err}
	}

	return imageToGrid(img), format, nil
}

// WriteGrid encodes grid as an opaque RGB image in the given format.
func WriteGrid(w io.Writer, grid *Grid, format ImageFormat) error {
	img := gridToImage(grid)
	switch format {
	case FormatPNG:
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		return encoder.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatQOI:
		return qoi.Encode(w, img)
	default:
		return &InvalidImageFormatError{Format: format.String()}
	}
}

func loadImage(imgPath string, outputLevel OutputLevel) (grid *Grid, format ImageFormat, err error) {
	imgFile, err := os.Open(imgPath)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, "Unable to open the image!", err.Error())
		return nil, FormatUnknown, err
	}

	defer func() {
		if cerr := imgFile.Close(); cerr != nil {
			printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Error closing the file '%v': %v", imgPath, cerr.Error()))
		}
	}()

	grid, format, err = ReadGrid(imgFile)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, "The image couldn't be decoded:", err.Error())
		return nil, FormatUnknown, err
	}

	return grid, format, nil
}

func writeImage(grid *Grid, format ImageFormat, outPath string, outputLevel OutputLevel) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("There was an error creating the file '%v'.", outPath))
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Error closing the file '%v': %v", outPath, cerr.Error()))
			if err == nil {
				err = cerr
			}
		}
	}()

	w := bufio.NewWriter(f)
	if err = WriteGrid(w, grid, format); err != nil {
		printlnLvl(outputLevel, OutputSteps, "There was an error encoding the image to the new file.")
		return err
	}
	return w.Flush()
}

// Helper functions

func imageToGrid(img image.Image) *Grid {
	bounds := img.Bounds()
	grid := NewGrid(bounds.Dx(), bounds.Dy())

	// NRGBA is what the PNG and QOI decoders produce for images with alpha
	if nimg, ok := img.(*image.NRGBA); ok {
		for y := 0; y < grid.H; y++ {
			row := nimg.Pix[y*nimg.Stride:]
			for x := 0; x < grid.W; x++ {
				grid.Set(x, y, Pixel{row[x*4], row[x*4+1], row[x*4+2]})
			}
		}
		return grid
	}

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			// NRGBA64 keeps the colour of fully transparent pixels, NRGBA would zero it
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			grid.Set(x, y, Pixel{uint8(c.R >> 8), uint8(c.G >> 8), uint8(c.B >> 8)})
		}
	}
	return grid
}

func gridToImage(grid *Grid) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, grid.W, grid.H))
	for y := 0; y < grid.H; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < grid.W; x++ {
			p := grid.At(x, y)
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = p[0], p[1], p[2], 0xff
		}
	}
	return img
}
