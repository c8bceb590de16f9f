package textsteg

import (
	"fmt"
	"os"
)

// HideConfig stores the configuration options for the Hide operation.
type HideConfig struct {
	// ImagePath is the path on disk to a PNG, BMP or QOI image.
	ImagePath string
	// OutPath is the path on disk to write the output image. Its extension picks the output format.
	OutPath string
	// Text is the text to hide. It must be representable in ISO-8859-1.
	Text string
	// FilePath is the path on disk to a file whose raw bytes are hidden instead of Text.
	FilePath string
	// OutputLevel is the amount of output to provide.
	OutputLevel OutputLevel
}

// Encode hides payload in grid, one 3-pixel block per byte starting at the top-left pixel.
// The grid is modified in place and returned. If the payload does not fit, an *InsufficientCapacityError is
// returned and the grid is left untouched.
func Encode(grid *Grid, payload []byte) (*Grid, error) {
	return encodeGrid(grid, payload, OutputNone)
}

// Hide hides text, or the contents of a file, in an image on disk, and saves the result to a new image.
func Hide(config *HideConfig) error {
	// Input validation
	if len(config.ImagePath) <= 0 {
		return &InvalidFormatError{"ImagePath is empty."}
	}
	if len(config.OutPath) <= 0 {
		return &InvalidFormatError{"OutPath is empty."}
	}
	if len(config.Text) > 0 && len(config.FilePath) > 0 {
		return &InvalidFormatError{"Only one of Text and FilePath may be provided."}
	}
	if len(config.Text) <= 0 && len(config.FilePath) <= 0 {
		return &InvalidFormatError{"Neither Text nor FilePath was provided."}
	}
	outFormat, err := FormatFromPath(config.OutPath)
	if err != nil {
		return err
	}
	outputLevel := config.OutputLevel

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("textsteg v%v", Version()))
	printlnLvl(outputLevel, OutputDebug, "This tool has been set to display debug output.")

	var payload []byte
	if len(config.FilePath) > 0 {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Reading the file at '%v'...", config.FilePath))
		payload, err = os.ReadFile(config.FilePath)
		if err != nil {
			printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Unable to read the file at '%v'.", config.FilePath))
			return err
		}
	} else {
		payload, err = TextToPayload(config.Text)
		if err != nil {
			return err
		}
	}
	printlnLvl(outputLevel, OutputInfo, fmt.Sprintf("Payload size: %d B", len(payload)))

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Loading the image from '%v'...", config.ImagePath))
	grid, inFormat, err := loadImage(config.ImagePath, outputLevel)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Unable to load the image at '%v'!", config.ImagePath))
		return err
	}

	printlnLvl(outputLevel, OutputInfo,
		fmt.Sprintf("Image info:\n\tFormat: %v\n\tDimensions: %dx%d px\n\tCapacity: %d B",
			inFormat, grid.W, grid.H, Capacity(grid)))

	printlnLvl(outputLevel, OutputSteps, "Encoding the payload into the image...")
	if _, err = encodeGrid(grid, payload, outputLevel); err != nil {
		return err
	}

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Writing the encoded image to '%v' now...", config.OutPath))
	if err = writeImage(grid, outFormat, config.OutPath, outputLevel); err != nil {
		printlnLvl(outputLevel, OutputSteps, "An error occurred while writing to the final image.")
		return err
	}

	printlnLvl(outputLevel, OutputSteps, "All done! c:")

	return nil
}

// Helper functions

func validateGrid(grid *Grid) error {
	if grid == nil {
		return &InvalidFormatError{"The grid is nil."}
	}
	if grid.W < 0 || grid.H < 0 || len(grid.Pix) != grid.W*grid.H {
		return &InvalidFormatError{fmt.Sprintf("The grid holds %d px, which does not match its %dx%d dimensions.",
			len(grid.Pix), grid.W, grid.H)}
	}
	return nil
}

func encodeGrid(grid *Grid, payload []byte, outputLevel OutputLevel) (*Grid, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}

	s, err := newPixelStream(grid)
	if err != nil {
		return nil, err
	}
	if err = encodeBlocks(s, payload, outputLevel); err != nil {
		return nil, err
	}

	return grid, nil
}
