package textsteg

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// TextToPayload converts text into a single-byte payload using ISO-8859-1.
// Text containing characters above U+00FF cannot be represented and is rejected.
func TextToPayload(text string) ([]byte, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, &InvalidFormatError{fmt.Sprintf("The text contains characters outside ISO-8859-1: %v", err.Error())}
	}
	return b, nil
}

// PayloadToText converts a single-byte payload back into text using ISO-8859-1.
func PayloadToText(payload []byte) string {
	b, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		// Every byte is a valid ISO-8859-1 code point
		panic(err)
	}
	return string(b)
}

// EncodeText hides text in grid. See Encode.
func EncodeText(grid *Grid, text string) (*Grid, error) {
	payload, err := TextToPayload(text)
	if err != nil {
		return nil, err
	}
	return Encode(grid, payload)
}

// DecodeText digs text out of grid. See Decode.
// When the result is partial, the partial text is returned alongside the *MissingTerminatorError.
func DecodeText(grid *Grid) (string, error) {
	payload, err := Decode(grid)
	if payload == nil {
		return "", err
	}
	return PayloadToText(payload), err
}
