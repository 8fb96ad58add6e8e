package godbf

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Options configures a Codec.
type Options struct {
	// Encoding is a charset name such as "windows-1252". When empty the
	// header's language driver byte picks the code page.
	Encoding string
	// Strict turns every degraded field, truncated record and overflowing
	// value into an error instead of recovering silently.
	Strict bool
	// Workers decodes records in parallel when greater than 1.
	Workers int
	// Now stamps the last-update date on encode. Defaults to time.Now.
	Now func() time.Time
	// Metrics is optional.
	Metrics *Metrics
}

// Codec converts between DBF byte buffers and Tables. A Codec has no mutable
// state and may be shared between goroutines.
type Codec struct {
	opts     Options
	fixed    *codePage
	fallback *codePage
	byDriver map[byte]*codePage
}

func NewCodec(opts Options) (*Codec, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	c := &Codec{opts: opts, byDriver: make(map[byte]*codePage)}
	if opts.Encoding != "" {
		cp, err := newCodePage(opts.Encoding)
		if err != nil {
			return nil, err
		}
		c.fixed = cp
		return c, nil
	}
	fallback, err := newCodePage(defaultEncoding)
	if err != nil {
		return nil, err
	}
	c.fallback = fallback
	for id, name := range languageDrivers {
		if cp, err := newCodePage(name); err == nil {
			c.byDriver[id] = cp
		}
	}
	return c, nil
}

var defaultCodec = mustCodec(Options{})

func mustCodec(opts Options) *Codec {
	c, err := NewCodec(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode decodes buf with the default lenient codec.
func Decode(buf []byte, fileName string) (*Table, error) {
	return defaultCodec.Decode(buf, fileName)
}

// Encode encodes t with the default lenient codec.
func Encode(t *Table) ([]byte, error) {
	return defaultCodec.Encode(t)
}

// Decode parses a complete DBF buffer. Only a buffer shorter than the fixed
// header fails in lenient mode; other damage is recovered field by field.
func (c *Codec) Decode(buf []byte, fileName string) (*Table, error) {
	start := time.Now()
	header, err := decodeHeader(buf)
	if err != nil {
		c.opts.Metrics.observeDecode(start, err)
		return nil, err
	}
	cp := c.codePageFor(header.LanguageDriver)
	header.Fields, err = decodeFields(buf, int(header.HeaderLength), cp, c.opts.Strict)
	if err != nil {
		c.opts.Metrics.observeDecode(start, err)
		return nil, err
	}
	rows, err := c.decodeRecords(buf, header, cp)
	if err != nil {
		c.opts.Metrics.observeDecode(start, err)
		return nil, err
	}
	c.opts.Metrics.observeDecode(start, nil)
	return &Table{
		ID:       ksuid.New().String(),
		FileName: fileName,
		Header:   header,
		Rows:     rows,
	}, nil
}

// Encode serializes t into a new buffer. Record and header lengths are
// recomputed from t.Header.Fields; the stored lengths are ignored.
func (c *Codec) Encode(t *Table) ([]byte, error) {
	start := time.Now()
	if t == nil {
		err := &FormatError{Msg: "nil table"}
		c.opts.Metrics.observeEncode(start, err)
		return nil, err
	}
	fields := t.Header.Fields
	headerLength := headerLengthFor(fields)
	recordLength := recordLengthFor(fields)
	if headerLength > 0xFFFF || recordLength > 0xFFFF {
		err := &FormatError{Offset: 8, Msg: "too many or too wide fields"}
		c.opts.Metrics.observeEncode(start, err)
		return nil, err
	}
	cp := c.codePageFor(t.Header.LanguageDriver)

	buf := make([]byte, headerLength+len(t.Rows)*recordLength+1)
	encodeHeader(buf, t.Header, fields, len(t.Rows), c.opts.Now())
	encodeFields(buf, fields, cp)

	offset := headerLength
	for i, row := range t.Rows {
		if err := c.encodeRecord(buf[offset:offset+recordLength], fields, row, cp, i); err != nil {
			c.opts.Metrics.observeEncode(start, err)
			return nil, err
		}
		offset += recordLength
	}
	buf[len(buf)-1] = EOF
	c.opts.Metrics.observeEncode(start, nil)
	return buf, nil
}
