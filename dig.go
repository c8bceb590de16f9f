package textsteg

import (
	"errors"
	"fmt"
	"os"
)

// DigConfig stores the configuration options for the Dig operation.
type DigConfig struct {
	ImagePath    string      // The path on disk to a PNG, BMP or QOI image.
	OutPath      string      // The path on disk to write the raw payload to. Optional.
	AllowPartial bool        // Whether a payload without a terminating block is returned instead of failing.
	OutputLevel  OutputLevel // The amount of output to provide.
}

// Decode digs a payload out of grid, reading 3-pixel blocks from the top-left pixel until a block flagged as the
// last one. The grid is not modified.
//
// If the grid runs out before a terminating block is found, the bytes read so far are returned together with a
// *MissingTerminatorError.
func Decode(grid *Grid) ([]byte, error) {
	return decodeGrid(grid, OutputNone)
}

// Dig extracts the text hidden in an image on disk. If an OutPath is configured, the raw payload is also written
// there.
func Dig(config DigConfig) (string, error) {
	// Input validation
	if len(config.ImagePath) <= 0 {
		return "", &InvalidFormatError{"ImagePath is empty."}
	}
	outputLevel := config.OutputLevel

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("textsteg v%v", Version()))
	printlnLvl(outputLevel, OutputDebug, "This tool has been set to display debug output.")

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Loading the image from '%v'...", config.ImagePath))
	grid, format, err := loadImage(config.ImagePath, outputLevel)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Unable to load the image at '%v'!", config.ImagePath))
		return "", err
	}

	printlnLvl(outputLevel, OutputInfo,
		fmt.Sprintf("Image info:\n\tFormat: %v\n\tDimensions: %dx%d px\n\tCapacity: %d B",
			format, grid.W, grid.H, Capacity(grid)))

	printlnLvl(outputLevel, OutputSteps, "Reading the payload from the image...")
	payload, err := decodeGrid(grid, outputLevel)
	if err != nil {
		var mtErr *MissingTerminatorError
		if !errors.As(err, &mtErr) || !config.AllowPartial {
			return "", err
		}
		printlnLvl(outputLevel, OutputSteps, "No terminating block was found, keeping the partial payload.")
	}
	printlnLvl(outputLevel, OutputInfo, fmt.Sprintf("Payload size: %d B", len(payload)))

	if len(config.OutPath) > 0 {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Writing to the output file at '%v'...", config.OutPath))
		if err = os.WriteFile(config.OutPath, payload, 0644); err != nil {
			printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("There was an error writing the file '%v'.", config.OutPath))
			return "", err
		}
	}

	printlnLvl(outputLevel, OutputSteps, "All done! c:")

	return PayloadToText(payload), nil
}

// Helper functions

func decodeGrid(grid *Grid, outputLevel OutputLevel) ([]byte, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}

	s, err := newPixelStream(grid)
	if err != nil {
		return nil, err
	}
	return decodeBlocks(s, outputLevel)
}
