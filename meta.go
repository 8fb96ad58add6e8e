package godbf

import "time"

const (
	headerSize     = 32
	descriptorSize = 32
	fieldNameSize  = 11
)

// Field type codes.
const (
	TypeCharacter byte = 'C'
	TypeNumeric   byte = 'N'
	TypeFloat     byte = 'F'
	TypeLogical   byte = 'L'
	TypeDate      byte = 'D'
	TypeDateTime  byte = 'T'
	TypeMemo      byte = 'M'
	TypeInteger   byte = 'I'
	TypeDouble    byte = 'B'
	TypeCurrency  byte = 'Y'
)

// DBFHeader represents the on-disk structure of the DBF file header.
type DBFHeader struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16
	Reserved         [2]byte
	Flag             byte
	EncryptFlag      byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte
}

// FieldDescriptor represents the on-disk structure of a field descriptor.
type FieldDescriptor struct {
	Name       [11]byte
	Type       byte
	Reserved1  [4]byte
	Length     byte
	Decimal    byte
	Reserved2  [2]byte
	WorkAreaID byte
	Reserved3  [10]byte
	Flag       byte
}

// Field describes one column of a table.
type Field struct {
	Name    string
	Type    byte
	Length  uint8
	Decimal uint8
}

// Header is the decoded table header.
type Header struct {
	Version        byte
	LastUpdate     time.Time
	RecordCount    uint32
	HeaderLength   uint16
	RecordLength   uint16
	LanguageDriver byte
	Fields         []Field
}

// Table is a decoded DBF file. Rows holds the active records only, so
// len(Rows) may be smaller than Header.RecordCount.
type Table struct {
	ID       string
	FileName string
	Header   Header
	Rows     []Row
}

func headerLengthFor(fields []Field) int {
	return headerSize + descriptorSize*len(fields) + 1
}

func recordLengthFor(fields []Field) int {
	n := 1
	for _, f := range fields {
		n += int(f.Length)
	}
	return n
}
