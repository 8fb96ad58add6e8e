package godbf

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type DBF interface {
	ReloadFromFile() error
	NumRecords() uint32
	Table() *Table
	Append(row Row) error
	Save(t *Table) error
}

// DBFHandler keeps a decoded table in sync with a file on disk.
type DBFHandler struct {
	mu       sync.RWMutex
	fileName string
	codec    *Codec
	table    *Table
	checksum string
}

const (
	SPACE = 0x20
	EOF   = 0x1A
	NUL   = 0x00
)

const watchDebounce = 200 * time.Millisecond

func NewDBFFromFile(fileName string, codec *Codec) (*DBFHandler, error) {
	if codec == nil {
		codec = defaultCodec
	}
	dbf := &DBFHandler{
		fileName: fileName,
		codec:    codec,
	}
	if err := dbf.reload(); err != nil {
		return nil, err
	}
	return dbf, nil
}

func (dbf *DBFHandler) ReloadFromFile() error {
	dbf.mu.Lock()
	defer dbf.mu.Unlock()
	return dbf.reload()
}

func (dbf *DBFHandler) reload() error {
	data, err := os.ReadFile(dbf.fileName)
	if err != nil {
		return err
	}
	return dbf.load(data)
}

func (dbf *DBFHandler) load(data []byte) error {
	table, err := dbf.codec.Decode(data, filepath.Base(dbf.fileName))
	if err != nil {
		return err
	}
	sum := md5.Sum(data)
	dbf.table = table
	dbf.checksum = hex.EncodeToString(sum[:])
	return nil
}

// NumRecords returns the record count stored in the header, deleted records included.
func (dbf *DBFHandler) NumRecords() uint32 {
	dbf.mu.RLock()
	defer dbf.mu.RUnlock()
	return dbf.table.Header.RecordCount
}

// Table returns the current table. Callers must treat it as read-only and
// pass edits back through Save.
func (dbf *DBFHandler) Table() *Table {
	dbf.mu.RLock()
	defer dbf.mu.RUnlock()
	return dbf.table
}

// Watch reloads the table whenever the file is written by another process and
// reports every reload to onChange. It returns once the watcher is running;
// watching stops when ctx is done.
func (dbf *DBFHandler) Watch(ctx context.Context, onChange func(*Table, error)) error {
	absPath, err := filepath.Abs(dbf.fileName)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// fsnotify watches directories for file events
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					changed, err := dbf.reloadIfChanged()
					if err != nil {
						log.Printf("dbf watcher: reload %q failed: %v", absPath, err)
						onChange(nil, err)
						return
					}
					if changed {
						onChange(dbf.Table(), nil)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("dbf watcher: error: %v", err)
			}
		}
	}()
	return nil
}

func (dbf *DBFHandler) reloadIfChanged() (bool, error) {
	dbf.mu.Lock()
	defer dbf.mu.Unlock()
	sum, err := dbf.getFileMd5()
	if err != nil {
		return false, err
	}
	if sum == dbf.checksum {
		return false, nil
	}
	return true, dbf.reload()
}
