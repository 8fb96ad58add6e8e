package godbf

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// encodeRecord writes one active record into dst, which is exactly one
// record length long.
func (c *Codec) encodeRecord(dst []byte, fields []Field, row Row, cp *codePage, index int) error {
	for i := range dst {
		dst[i] = SPACE
	}
	// the codec never writes deletion markers
	dst[0] = activeFlag
	pos := 1
	for i, f := range fields {
		var v Value
		if i < len(row) && row[i].Name == f.Name {
			v = row[i].Value
		} else {
			v = row.Get(f.Name)
		}
		next := pos + int(f.Length)
		if err := encodeField(f, v, dst[pos:next], cp); err != nil {
			c.opts.Metrics.fieldDegraded(f.Type)
			if c.opts.Strict {
				return &FieldError{Record: index, Field: f.Name, Type: f.Type, Raw: v.String(), Err: err}
			}
		}
		pos = next
	}
	return nil
}

// Append writes one active record at the end of the file and updates the
// record count and last-update date in place. It refuses to write when the
// file changed since it was last loaded.
func (dbf *DBFHandler) Append(row Row) (err error) {
	dbf.mu.Lock()
	defer dbf.mu.Unlock()

	oldMd5String, err := dbf.getFileMd5()
	if err != nil {
		return err
	}
	if oldMd5String != dbf.checksum {
		_ = dbf.reload()
		return ErrFileChanged
	}

	header := dbf.table.Header
	fields := header.Fields
	recordLength := recordLengthFor(fields)
	if recordLength != int(header.RecordLength) {
		return &FormatError{Offset: 10, Msg: fmt.Sprintf("record length %d does not match fields (%d)", header.RecordLength, recordLength)}
	}
	cp := dbf.codec.codePageFor(header.LanguageDriver)

	// the trailing byte is the end of file marker
	buf := make([]byte, recordLength+1)
	if err = dbf.codec.encodeRecord(buf[:recordLength], fields, row, cp, int(header.RecordCount)); err != nil {
		return err
	}
	buf[recordLength] = EOF

	f, err := os.OpenFile(dbf.fileName, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	offset := int64(header.HeaderLength) + int64(recordLength)*int64(header.RecordCount)
	if err = dbf.saveRecord(f, offset, buf); err != nil {
		return err
	}
	if err = dbf.saveNumRecords(f, header.RecordCount+1); err != nil {
		_ = dbf.rollbackRecord(f, offset)
		return err
	}
	now := dbf.codec.opts.Now()
	year, month, day := now.Date()
	date := []byte{byte(year - 1900), byte(month), byte(day)}
	if err = dbf.saveUpdateTime(f, date); err != nil {
		_ = dbf.rollbackNumRecords(f, header.RecordCount)
		_ = dbf.rollbackRecord(f, offset)
		return err
	}
	if err = f.Sync(); err != nil {
		_ = dbf.rollbackUpdateTime(f, header.LastUpdate)
		_ = dbf.rollbackNumRecords(f, header.RecordCount)
		_ = dbf.rollbackRecord(f, offset)
		return err
	}

	stored, ok, err := dbf.codec.decodeRecord(buf[:recordLength], fields, cp, int(header.RecordCount))
	if err != nil {
		return err
	}
	table := *dbf.table
	table.Header.RecordCount++
	table.Header.LastUpdate = headerDate(date)
	rows := make([]Row, len(dbf.table.Rows), len(dbf.table.Rows)+1)
	copy(rows, dbf.table.Rows)
	if ok {
		rows = append(rows, stored)
	}
	table.Rows = rows
	dbf.table = &table
	dbf.checksum, err = dbf.getFileMd5()
	return err
}

func (dbf *DBFHandler) saveRecord(f *os.File, offset int64, buf []byte) error {
	if _, err := f.WriteAt(buf, offset); err != nil {
		_ = dbf.rollbackRecord(f, offset)
		return fmt.Errorf("failed to write record: %w", err)
	}
	// drop anything that followed the old end of file marker
	if err := f.Truncate(offset + int64(len(buf))); err != nil {
		_ = dbf.rollbackRecord(f, offset)
		return fmt.Errorf("failed to truncate after record: %w", err)
	}
	return nil
}

func (dbf *DBFHandler) rollbackRecord(f *os.File, offset int64) error {
	if err := f.Truncate(offset); err != nil {
		return errors.New("failed to truncate record while rolling back")
	}
	if _, err := f.WriteAt([]byte{EOF}, offset); err != nil {
		return errors.New("failed to write end of file marker while rolling back")
	}
	return nil
}

func (dbf *DBFHandler) saveNumRecords(f *os.File, numRecords uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], numRecords)
	if _, err := f.WriteAt(b[:], 4); err != nil {
		return fmt.Errorf("failed to write record count: %w", err)
	}
	return nil
}

func (dbf *DBFHandler) rollbackNumRecords(f *os.File, numRecords uint32) error {
	return dbf.saveNumRecords(f, numRecords)
}

func (dbf *DBFHandler) saveUpdateTime(f *os.File, date []byte) error {
	if _, err := f.WriteAt(date, 1); err != nil {
		return fmt.Errorf("failed to write update time: %w", err)
	}
	return nil
}

func (dbf *DBFHandler) rollbackUpdateTime(f *os.File, last time.Time) error {
	year, month, day := last.Date()
	return dbf.saveUpdateTime(f, []byte{byte(year - 1900), byte(month), byte(day)})
}

// Save encodes t and replaces the file with the result.
func (dbf *DBFHandler) Save(t *Table) error {
	dbf.mu.Lock()
	defer dbf.mu.Unlock()

	data, err := dbf.codec.Encode(t)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dbf.fileName), filepath.Base(dbf.fileName)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dbf.fileName); err != nil {
		return err
	}
	return dbf.load(data)
}

func (dbf *DBFHandler) getFileMd5() (string, error) {
	file, err := os.Open(dbf.fileName)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
