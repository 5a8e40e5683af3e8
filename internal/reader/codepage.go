package reader

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultCodepage is assumed for 8-bit string properties when the property
// context declares neither a message nor an internet codepage. Table-context
// cells always use it.
const DefaultCodepage = 1252

// codepageEncoding maps a Windows codepage number to a decoder. A nil return
// means the bytes are already valid UTF-8 (or close enough: US-ASCII).
func codepageEncoding(cp int) encoding.Encoding {
	switch cp {
	case 874:
		return charmap.Windows874
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 1252:
		return charmap.Windows1252
	case 1253:
		return charmap.Windows1253
	case 1254:
		return charmap.Windows1254
	case 1255:
		return charmap.Windows1255
	case 1256:
		return charmap.Windows1256
	case 1257:
		return charmap.Windows1257
	case 1258:
		return charmap.Windows1258
	case 20866:
		return charmap.KOI8R
	case 28591:
		return charmap.ISO8859_1
	case 28592:
		return charmap.ISO8859_2
	case 28595:
		return charmap.ISO8859_5
	case 28599:
		return charmap.ISO8859_9
	case 28605:
		return charmap.ISO8859_15
	case 20127, 65001:
		return nil
	default:
		return charmap.Windows1252
	}
}

// decodeString8 decodes an 8-bit string property using the given codepage.
func decodeString8(data []byte, cp int) (string, error) {
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	enc := codepageEncoding(cp)
	if enc == nil {
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
