package godbf

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
)

const fieldTerminator = 0x0D

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, &FormatError{Offset: len(buf), Msg: "buffer shorter than the 32 byte header"}
	}
	var raw DBFHeader
	if err := binary.Read(bytes.NewReader(buf[:headerSize]), binary.LittleEndian, &raw); err != nil {
		return Header{}, err
	}
	return Header{
		Version:        raw.Version,
		LastUpdate:     headerDate([]byte{raw.LastUpdateYear, raw.LastUpdateMonth, raw.LastUpdateDay}),
		RecordCount:    raw.NumRecords,
		HeaderLength:   raw.HeaderLength,
		RecordLength:   raw.RecordLength,
		LanguageDriver: raw.LanguageDriverID,
	}, nil
}

// headerDate converts the three last-update bytes. Years below 70 are
// taken as 20xx.
func headerDate(b []byte) time.Time {
	year := 1900 + int(b[0])
	if b[0] < 70 {
		year = 2000 + int(b[0])
	}
	return time.Date(year, time.Month(b[1]), int(b[2]), 0, 0, 0, 0, time.UTC)
}

// encodeHeader writes the fixed header into dst. Lengths come from the
// current field list, not from h.
func encodeHeader(dst []byte, h Header, fields []Field, numRecords int, now time.Time) {
	year, month, day := now.Date()
	raw := DBFHeader{
		Version:          h.Version,
		LastUpdateYear:   byte(year - 1900),
		LastUpdateMonth:  byte(month),
		LastUpdateDay:    byte(day),
		NumRecords:       uint32(numRecords),
		HeaderLength:     uint16(headerLengthFor(fields)),
		RecordLength:     uint16(recordLengthFor(fields)),
		LanguageDriverID: h.LanguageDriver,
	}
	var b bytes.Buffer
	// bytes.Buffer writes cannot fail.
	_ = binary.Write(&b, binary.LittleEndian, &raw)
	copy(dst[:headerSize], b.Bytes())
}

// decodeFields reads descriptors from offset 32 up to the terminator byte or
// headerLength-1, whichever comes first.
func decodeFields(buf []byte, headerLength int, cp *codePage, strict bool) ([]Field, error) {
	var fields []Field
	for offset := headerSize; offset < headerLength-1 && offset < len(buf) && buf[offset] != fieldTerminator; offset += descriptorSize {
		if offset+descriptorSize > len(buf) {
			if strict {
				return nil, &FormatError{Offset: offset, Msg: "field descriptor runs past end of buffer"}
			}
			break
		}
		var raw FieldDescriptor
		if err := binary.Read(bytes.NewReader(buf[offset:offset+descriptorSize]), binary.LittleEndian, &raw); err != nil {
			return nil, err
		}
		index := bytes.IndexByte(raw.Name[:], NUL)
		if index == -1 {
			index = len(raw.Name)
		}
		fields = append(fields, Field{
			Name:    strings.TrimSpace(cp.decode(raw.Name[:index])),
			Type:    upperASCII(raw.Type),
			Length:  raw.Length,
			Decimal: raw.Decimal,
		})
	}
	return fields, nil
}

// encodeFields writes the descriptors and the terminator into dst, which
// starts at offset 0 of the file.
func encodeFields(dst []byte, fields []Field, cp *codePage) {
	offset := headerSize
	for _, f := range fields {
		raw := FieldDescriptor{
			Type:    f.Type,
			Length:  f.Length,
			Decimal: f.Decimal,
		}
		// the last name byte stays NUL
		copy(raw.Name[:fieldNameSize-1], cp.encode(f.Name))
		var b bytes.Buffer
		_ = binary.Write(&b, binary.LittleEndian, &raw)
		copy(dst[offset:offset+descriptorSize], b.Bytes())
		offset += descriptorSize
	}
	dst[headerLengthFor(fields)-1] = fieldTerminator
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
