package message

import (
	"golang.org/x/xerrors"
	"io"
	"sync"
)

// ErrNotBuffering is returned by replay readers used after StopBuffering.
var ErrNotBuffering = xerrors.New("buffering stream is not buffering")

/*
BufferingStream wraps a body so it can be read several times while buffering is on.

While buffering, every byte read from the source is kept. Replay readers created with
NewReplay each start at the beginning of the buffered data and pull more from the source
when they run past it. Physical reads of the source are serialized by a mutex, so
replays may be consumed from several goroutines.

After StopBuffering, replays stop working and Read serves the buffered bytes once before
passing through to the source. This is how the body is handed to the real reader after
payload kind detection without reading the source twice.
*/
type BufferingStream struct {
	lock sync.Mutex

	source io.Reader
	closer io.Closer

	buffer    []byte
	sourceErr error
	buffering bool
	// Read offset of the pass-through consumer within buffer.
	position int
	// Whether the pass-through consumer has read anything.
	consumed bool
	closed   bool
}

// Wraps source. If source is an io.Closer it is closed by Close.
func NewBufferingStream(source io.Reader) *BufferingStream {
	stream := &BufferingStream{source: source}
	if closer, ok := source.(io.Closer); ok {
		stream.closer = closer
	}
	return stream
}

// Turns buffering on. Bytes already handed out by Read are not recovered.
func (stream *BufferingStream) StartBuffering() {
	stream.lock.Lock()
	defer stream.lock.Unlock()
	stream.buffering = true
}

// Turns buffering off. Buffered data stays available to Read.
func (stream *BufferingStream) StopBuffering() {
	stream.lock.Lock()
	defer stream.lock.Unlock()
	stream.buffering = false
}

func (stream *BufferingStream) IsBuffering() bool {
	stream.lock.Lock()
	defer stream.lock.Unlock()
	return stream.buffering
}

// Whether Read has been called since the stream was created.
func (stream *BufferingStream) Consumed() bool {
	stream.lock.Lock()
	defer stream.lock.Unlock()
	return stream.consumed
}

// Returns a reader over the buffered body, starting from its beginning.
func (stream *BufferingStream) NewReplay() io.Reader {
	return &replayReader{stream: stream}
}

// fill reads one chunk from the source into the buffer. Caller must hold the lock.
func (stream *BufferingStream) fill(size int) error {
	if stream.sourceErr != nil {
		return stream.sourceErr
	}
	if size < 512 {
		size = 512
	}
	chunk := make([]byte, size)
	read, err := stream.source.Read(chunk)
	stream.buffer = append(stream.buffer, chunk[:read]...)
	if err != nil {
		stream.sourceErr = err
		if read == 0 {
			return err
		}
	}
	return nil
}

func (stream *BufferingStream) readAt(offset int, into []byte) (int, error) {
	stream.lock.Lock()
	defer stream.lock.Unlock()

	if stream.closed {
		return 0, io.ErrClosedPipe
	}
	if !stream.buffering {
		return 0, ErrNotBuffering
	}
	if offset >= len(stream.buffer) {
		if err := stream.fill(len(into)); err != nil {
			return 0, err
		}
	}
	return copy(into, stream.buffer[offset:]), nil
}

// Read serves buffered bytes first, then reads the source. While buffering is on, the
// bytes it reads from the source are buffered too.
func (stream *BufferingStream) Read(into []byte) (int, error) {
	stream.lock.Lock()
	defer stream.lock.Unlock()

	if stream.closed {
		return 0, io.ErrClosedPipe
	}
	stream.consumed = true

	if stream.position < len(stream.buffer) {
		read := copy(into, stream.buffer[stream.position:])
		stream.position += read
		if !stream.buffering && stream.position == len(stream.buffer) {
			// Release the buffer once it has been handed out.
			stream.buffer = nil
			stream.position = 0
		}
		return read, nil
	}

	if stream.buffering {
		if err := stream.fill(len(into)); err != nil {
			return 0, err
		}
		read := copy(into, stream.buffer[stream.position:])
		stream.position += read
		return read, nil
	}

	if stream.sourceErr != nil {
		return 0, stream.sourceErr
	}
	return stream.source.Read(into)
}

// Close closes the source if it is closable. Calling Close twice is a no-op.
func (stream *BufferingStream) Close() error {
	stream.lock.Lock()
	defer stream.lock.Unlock()

	if stream.closed {
		return nil
	}
	stream.closed = true
	stream.buffer = nil
	if stream.closer != nil {
		return stream.closer.Close()
	}
	return nil
}

type replayReader struct {
	stream *BufferingStream
	offset int
}

func (replay *replayReader) Read(into []byte) (int, error) {
	read, err := replay.stream.readAt(replay.offset, into)
	replay.offset += read
	return read, err
}
