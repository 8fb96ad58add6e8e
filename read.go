package godbf

import (
	"sync"
)

const (
	deletedFlag = 0x2A
	activeFlag  = SPACE

	// below this many records per worker the pool costs more than it saves
	minRecordsPerWorker = 256
)

type workerArgs struct {
	index int
}

// decodeJob holds the shared, read-only inputs of one table decode. Each
// worker writes only its own slots.
type decodeJob struct {
	codec   *Codec
	buf     []byte
	header  Header
	cp      *codePage
	rows    []Row
	present []bool
}

func (j *decodeJob) decode(index int) error {
	start := int(j.header.HeaderLength) + int(j.header.RecordLength)*index
	rec := j.buf[start : start+int(j.header.RecordLength)]
	row, ok, err := j.codec.decodeRecord(rec, j.header.Fields, j.cp, index)
	if err != nil {
		return err
	}
	j.rows[index] = row
	j.present[index] = ok
	return nil
}

func (c *Codec) decodeRecords(buf []byte, header Header, cp *codePage) ([]Row, error) {
	recordLength := int(header.RecordLength)
	numRecords := int(header.RecordCount)
	if numRecords == 0 {
		return []Row{}, nil
	}
	if recordLength < 1 {
		if c.opts.Strict {
			return nil, &FormatError{Offset: 10, Msg: "record length is zero"}
		}
		return []Row{}, nil
	}

	available := 0
	if len(buf) > int(header.HeaderLength) {
		available = (len(buf) - int(header.HeaderLength)) / recordLength
	}
	if available < numRecords {
		if c.opts.Strict {
			return nil, &FormatError{
				Offset: int(header.HeaderLength) + available*recordLength,
				Msg:    ErrTruncatedRecord.Error(),
			}
		}
		c.opts.Metrics.recordsTruncated(numRecords - available)
		numRecords = available
	}

	job := &decodeJob{
		codec:   c,
		buf:     buf,
		header:  header,
		cp:      cp,
		rows:    make([]Row, numRecords),
		present: make([]bool, numRecords),
	}

	workerNums := c.opts.Workers
	if workerNums > numRecords/minRecordsPerWorker {
		workerNums = numRecords / minRecordsPerWorker
	}
	if workerNums <= 1 {
		for i := 0; i < numRecords; i++ {
			if err := job.decode(i); err != nil {
				return nil, err
			}
		}
	} else if err := c.decodeParallel(job, numRecords, workerNums); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, numRecords)
	for i, ok := range job.present {
		if ok {
			rows = append(rows, job.rows[i])
		}
	}
	c.opts.Metrics.recordsDecoded(len(rows), numRecords-len(rows))
	return rows, nil
}

func (c *Codec) startWorker(job *decodeJob, workerChan []chan workerArgs, errs []error, wg *sync.WaitGroup) {
	for i := 0; i < len(workerChan); i++ {
		workerChan[i] = make(chan workerArgs, 16)
		go c.work(job, workerChan[i], errs, wg)
	}
}

func (c *Codec) work(job *decodeJob, taskChan <-chan workerArgs, errs []error, wg *sync.WaitGroup) {
	for args := range taskChan {
		errs[args.index] = job.decode(args.index)
		wg.Done()
	}
}

// decodeParallel spreads the records over workerNums goroutines. When several
// records fail, the error of the lowest record index is returned.
func (c *Codec) decodeParallel(job *decodeJob, numRecords, workerNums int) error {
	wg := sync.WaitGroup{}
	workerChan := make([]chan workerArgs, workerNums)
	errs := make([]error, numRecords)
	c.startWorker(job, workerChan, errs, &wg)
	for i := 0; i < numRecords; i++ {
		wg.Add(1)
		workerChan[i%workerNums] <- workerArgs{index: i}
	}
	wg.Wait()
	for i := 0; i < workerNums; i++ {
		close(workerChan[i])
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeRecord decodes one record. ok is false for deleted records.
func (c *Codec) decodeRecord(rec []byte, fields []Field, cp *codePage, index int) (row Row, ok bool, err error) {
	if rec[0] == deletedFlag {
		return nil, false, nil
	}
	row = make(Row, 0, len(fields))
	pos := 1
	for _, f := range fields {
		end := pos + int(f.Length)
		var raw []byte
		if end <= len(rec) {
			raw = rec[pos:end]
		} else {
			if c.opts.Strict {
				return nil, false, &FieldError{Record: index, Field: f.Name, Type: f.Type, Err: ErrTruncatedRecord}
			}
			raw = rec[min(pos, len(rec)):]
		}
		v, err := decodeField(f, raw, cp)
		if err != nil {
			c.opts.Metrics.fieldDegraded(f.Type)
			if c.opts.Strict {
				return nil, false, &FieldError{Record: index, Field: f.Name, Type: f.Type, Raw: string(raw), Err: err}
			}
		}
		row = append(row, Cell{Name: f.Name, Value: v})
		pos = end
	}
	return row, true, nil
}
