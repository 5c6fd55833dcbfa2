package generic

// MaxMessageSize is the initial buffer reservation, matching FlightGear's
// own limit for a single generic message.
const MaxMessageSize = 16384

// maxBuffered bounds how much unframed data is kept while waiting for a
// boundary.
const maxBuffered = 64 * MaxMessageSize

// Framer accumulates stream bytes and cuts them into records that end with
// the line separator. It is not safe for concurrent use; each transport
// owns its own.
type Framer struct {
	sep     Separator
	buf     []byte
	scanned int
}

func NewFramer(sep Separator) *Framer {
	return &Framer{
		sep: sep,
		buf: make([]byte, 0, MaxMessageSize),
	}
}

// Buffered reports how many bytes are waiting for a boundary.
func (f *Framer) Buffered() int { return len(f.buf) }

func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.scanned = 0
}

// Feed appends p and hands complete records to emit. With lastOnly set,
// only the final record found in this pass is emitted. Records include the
// trailing line separator and alias the internal buffer, so emit must not
// retain them.
//
// When no boundary has been seen yet Feed returns ErrNoBoundary and keeps
// everything buffered.
func (f *Framer) Feed(p []byte, lastOnly bool, emit func(record []byte)) (int, error) {
	f.buf = append(f.buf, p...)

	var (
		n     int
		start int
		last  []byte
	)
	pos := f.scanned
	for {
		i := f.sep.Index(f.buf, pos)
		if i < 0 {
			break
		}
		end := i + f.sep.Len()
		if i < start || end > len(f.buf) {
			f.Reset()
			return n, ErrStreamInvariant
		}

		rec := f.buf[start:end]
		if lastOnly {
			last = rec
		} else {
			emit(rec)
		}
		n++
		start = end
		pos = end
	}

	if n == 0 {
		if len(f.buf) > maxBuffered {
			f.Reset()
			return 0, ErrOverflow
		}
		// a separator may straddle the next append
		f.scanned = max(0, len(f.buf)-f.sep.Len()+1)
		return 0, ErrNoBoundary
	}

	if lastOnly {
		emit(last)
	}

	f.buf = append(f.buf[:0], f.buf[start:]...)
	f.scanned = 0
	return n, nil
}
