package godbf

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)

// buildDBF assembles a DBF buffer byte by byte so decoding can be tested
// without going through the encoder. Each record must include its status byte.
func buildDBF(t *testing.T, fields []Field, records ...[]byte) []byte {
	t.Helper()
	headerLength := 32 + 32*len(fields) + 1
	recordLength := 1
	for _, f := range fields {
		recordLength += int(f.Length)
	}

	var b bytes.Buffer
	b.WriteByte(0x03)
	b.Write([]byte{124, 3, 15})
	require.NoError(t, binary.Write(&b, binary.LittleEndian, uint32(len(records))))
	require.NoError(t, binary.Write(&b, binary.LittleEndian, uint16(headerLength)))
	require.NoError(t, binary.Write(&b, binary.LittleEndian, uint16(recordLength)))
	b.Write(make([]byte, 20))

	for _, f := range fields {
		desc := make([]byte, 32)
		copy(desc[:10], f.Name)
		desc[11] = f.Type
		desc[16] = f.Length
		desc[17] = f.Decimal
		b.Write(desc)
	}
	b.WriteByte(0x0D)
	for _, rec := range records {
		require.Len(t, rec, recordLength)
		b.Write(rec)
	}
	b.WriteByte(0x1A)
	return b.Bytes()
}

func record(status byte, parts ...[]byte) []byte {
	rec := []byte{status}
	for _, p := range parts {
		rec = append(rec, p...)
	}
	return rec
}

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func le64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func newTestCodec(t *testing.T, opts Options) *Codec {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	c, err := NewCodec(opts)
	require.NoError(t, err)
	return c
}

func cp1252(t *testing.T) *codePage {
	t.Helper()
	cp, err := newCodePage("windows-1252")
	require.NoError(t, err)
	return cp
}
