package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// Delimiter terminates every frame on the wire.
	Delimiter = '\n'

	// MaxFrameSize bounds how many bytes may be buffered without a delimiter.
	MaxFrameSize = 64 * 1024

	readChunkSize = 4096
)

// ProtocolError reports a single frame that could not be decoded. It is
// never fatal to the connection the frame arrived on.
type ProtocolError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	const maxShown = 64
	shown := e.Frame
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	return fmt.Sprintf("malformed frame %q: %v", shown, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(frame []byte, err error) *ProtocolError {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	return &ProtocolError{Frame: cp, Err: err}
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Encode serializes v as JSON followed by exactly one delimiter.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, Delimiter), nil
}

// Frame is one delimited unit. Err is set when the bytes are not a
// well-formed JSON object.
type Frame struct {
	Data []byte
	Err  error
}

// Decode splits buf on the delimiter. Complete frames are returned in order;
// trailing bytes without a delimiter are returned as remainder and must be
// prefixed onto the next read. Blank lines are skipped.
func Decode(buf []byte) ([]Frame, []byte) {
	var frames []Frame
	for {
		i := bytes.IndexByte(buf, Delimiter)
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(buf[:i])
		buf = buf[i+1:]
		if len(line) == 0 {
			continue
		}
		frames = append(frames, checkFrame(line))
	}
	return frames, buf
}

func checkFrame(line []byte) Frame {
	data := make([]byte, len(line))
	copy(data, line)
	if !json.Valid(data) || data[0] != '{' {
		return Frame{Data: data, Err: newProtocolError(data, errors.New("not a JSON object"))}
	}
	return Frame{Data: data}
}

// FrameReader turns a byte stream into batches of frames, carrying partial
// frames across reads.
type FrameReader struct {
	r       io.Reader
	pending []byte
	buf     []byte
}

// NewFrameReader creates a FrameReader over r
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, buf: make([]byte, readChunkSize)}
}

// Next blocks until at least one complete frame has arrived, or the reader
// fails. Frames that arrived together with an error are still returned.
// A clean close of the stream is reported as io.EOF.
func (fr *FrameReader) Next() ([]Frame, error) {
	for {
		n, err := fr.r.Read(fr.buf)
		if n > 0 {
			fr.pending = append(fr.pending, fr.buf[:n]...)
			var frames []Frame
			frames, fr.pending = Decode(fr.pending)
			fr.pending = compact(fr.pending)

			if len(fr.pending) > MaxFrameSize {
				frames = append(frames, Frame{
					Data: fr.pending[:MaxFrameSize],
					Err:  newProtocolError(fr.pending[:MaxFrameSize], fmt.Errorf("frame exceeds %d bytes", MaxFrameSize)),
				})
				fr.pending = nil
			}

			if len(frames) > 0 {
				return frames, err
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// compact moves the remainder to the front of a fresh slice so the backing
// array does not grow with every read.
func compact(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
