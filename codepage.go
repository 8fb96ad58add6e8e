package godbf

import (
	"fmt"

	"github.com/axgle/mahonia"
)

const defaultEncoding = "windows-1252"

// languageDrivers maps the header's language driver id to a charset name.
var languageDrivers = map[byte]string{
	0x03: "windows-1252",
	0x57: "windows-1252",
	0x58: "windows-1252",
	0x59: "windows-1252",
	0x7D: "windows-1255",
	0x7E: "windows-1256",
	0xC8: "windows-1250",
	0xC9: "windows-1251",
	0xCA: "windows-1254",
	0xCB: "windows-1253",
}

type codePage struct {
	name    string
	encoder mahonia.Encoder
	decoder mahonia.Decoder
}

func newCodePage(name string) (*codePage, error) {
	encoder := mahonia.NewEncoder(name)
	decoder := mahonia.NewDecoder(name)
	if encoder == nil || decoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return &codePage{name: name, encoder: encoder, decoder: decoder}, nil
}

func (cp *codePage) decode(b []byte) string {
	return cp.decoder.ConvertString(string(b))
}

func (cp *codePage) encode(s string) []byte {
	return []byte(cp.encoder.ConvertString(s))
}

// codePageFor picks the configured code page, or the one named by the
// language driver byte when none is configured.
func (c *Codec) codePageFor(languageDriver byte) *codePage {
	if c.fixed != nil {
		return c.fixed
	}
	if cp, ok := c.byDriver[languageDriver]; ok {
		return cp
	}
	return c.fallback
}
