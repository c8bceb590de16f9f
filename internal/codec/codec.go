// Package codec provides encode/decode interfaces for cache serialization.
package codec

// Codec encodes and decodes values for cache storage.
type Codec interface {
	// Marshal serializes v into bytes.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v (must be a pointer).
	Unmarshal(data []byte, v any) error
	// Name returns the codec identifier used in configuration and diagnostics.
	Name() string
}

// ByName returns the codec registered under name: "json", "msgpack" or "msgpack+zstd".
// The second return value is false for unknown names.
func ByName(name string) (Codec, bool) {
	switch name {
	case JSON{}.Name():
		return JSON{}, true
	case MsgPack{}.Name():
		return MsgPack{}, true
	case Default.Name():
		return Default, true
	default:
		return nil, false
	}
}
