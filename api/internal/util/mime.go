package util

import "bytes"

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8}
	gifMagic  = []byte("GIF8")
)

// SniffImage returns the MIME type of a PNG, JPEG or GIF payload and "" for anything else.
func SniffImage(b []byte) string {
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return "image/png"
	case bytes.HasPrefix(b, jpegMagic):
		return "image/jpeg"
	case bytes.HasPrefix(b, gifMagic):
		return "image/gif"
	}
	return ""
}
