package sim

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// File communicators exchange bytes with the circuit over a serial
// protocol. The circuit transmits 3-bit commands: 0b001 requests a byte
// (input) or, padded to 11 bits, carries one (output, high bits are the
// byte); 0b101 asks an input communicator whether more bytes remain. An
// input communicator answers a request with an 11-bit frame
// (byte<<3)|0b001 and a check with 0b1101 (bytes remain) or 0b0101 (file
// ended). An output communicator acknowledges each written byte with
// 0b001. File I/O happens on a worker goroutine so the simulation never
// blocks on the disk.

const fileCommBuf = 4096

// FileInputCommunicator streams a file into the circuit.
type FileInputCommunicator struct {
	mu   sync.Mutex
	path string

	stop  chan struct{}
	done  chan struct{}
	bytes chan byte

	// Simulation-goroutine state.
	pending        byte
	hasPending     bool
	ended          bool
	bytesRequested int
	checkRequested bool
	rxChunk        uint16
	rxCount        uint8
	txChunk        uint16
	txCount        uint8
}

// NewFileInputCommunicator returns an input communicator with no file
// bound; it reports end-of-file until one is set and Reset is called.
func NewFileInputCommunicator() *FileInputCommunicator {
	c := &FileInputCommunicator{}
	c.ended = true
	return c
}

// SetFilePath binds a file to stream from the next Reset onwards.
func (c *FileInputCommunicator) SetFilePath(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
}

// ClearFilePath unbinds the file.
func (c *FileInputCommunicator) ClearFilePath() { c.SetFilePath("") }

// FilePath returns the bound file path.
func (c *FileInputCommunicator) FilePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *FileInputCommunicator) Receive() bool {
	if c.rxCount == 0 {
		c.tryFill()
		if c.bytesRequested > 0 && c.hasPending {
			c.rxChunk = uint16(c.pending)<<3 | 0b001
			c.rxCount = 11
			c.hasPending = false
			c.bytesRequested--
		} else if c.bytesRequested == 0 && c.checkRequested {
			if c.hasPending {
				c.rxChunk = 0b1101
				c.rxCount = 4
				c.checkRequested = false
			} else if c.ended {
				c.rxChunk = 0b0101
				c.rxCount = 4
				c.checkRequested = false
			}
		}
	}
	if c.rxCount != 0 {
		out := c.rxChunk&1 != 0
		c.rxChunk >>= 1
		c.rxCount--
		return out
	}
	return false
}

func (c *FileInputCommunicator) Transmit(value bool) {
	if value {
		c.txChunk |= 1 << c.txCount
	}
	if c.txChunk == 0 {
		return
	}
	c.txCount++
	if c.txCount >= 3 {
		switch c.txChunk & 0b111 {
		case 0b001:
			c.bytesRequested++
		case 0b101:
			c.checkRequested = true
		}
		c.txChunk, c.txCount = 0, 0
	}
}

// tryFill stages the next byte from the reader goroutine, if any.
func (c *FileInputCommunicator) tryFill() {
	if c.hasPending || c.bytes == nil {
		return
	}
	select {
	case b, ok := <-c.bytes:
		if ok {
			c.pending, c.hasPending = b, true
		} else {
			c.ended = true
		}
	default:
	}
}

// Reset stops any previous reader, clears the protocol state and starts
// streaming the bound file from the beginning.
func (c *FileInputCommunicator) Reset() {
	c.stopWorker()
	c.pending, c.hasPending, c.ended = 0, false, false
	c.bytesRequested, c.checkRequested = 0, false
	c.rxChunk, c.rxCount = 0, 0
	c.txChunk, c.txCount = 0, 0

	c.mu.Lock()
	path := c.path
	c.mu.Unlock()
	if path == "" {
		c.ended = true
		return
	}
	f, err := os.Open(path)
	if err != nil {
		c.ended = true
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.bytes = make(chan byte, fileCommBuf)
	go readFile(f, c.bytes, c.stop, c.done)
}

func (c *FileInputCommunicator) stopWorker() {
	if c.stop != nil {
		close(c.stop)
		<-c.done
		c.stop, c.done, c.bytes = nil, nil, nil
	}
}

// Close releases the reader goroutine. The communicator is unusable
// afterwards until the next Reset.
func (c *FileInputCommunicator) Close() { c.stopWorker() }

// readFile streams f into out until EOF or a stop request. The channel is
// closed at EOF so the consumer can distinguish "file ended" from "no data
// yet"; channel backpressure paces the read.
func readFile(f *os.File, out chan<- byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer f.Close()
	buf := make([]byte, fileCommBuf)
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			select {
			case out <- b:
			case <-stop:
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				close(out)
			}
			return
		}
	}
}

// FileOutputCommunicator streams bytes from the circuit into a file.
type FileOutputCommunicator struct {
	mu   sync.Mutex
	path string

	stop  chan struct{}
	done  chan struct{}
	bytes chan byte
	acked atomic.Int64

	// Simulation-goroutine state.
	overflow []byte
	rxChunk  uint8
	rxCount  uint8
	txChunk  uint16
	txCount  uint8
}

// NewFileOutputCommunicator returns an output communicator with no file
// bound; transmitted bytes are discarded until one is set.
func NewFileOutputCommunicator() *FileOutputCommunicator {
	return &FileOutputCommunicator{}
}

// SetFile binds and opens the output file immediately, truncating it.
func (c *FileOutputCommunicator) SetFile(path string) {
	c.stopWorker()
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
	c.startWorker()
}

// ClearFile unbinds the output file.
func (c *FileOutputCommunicator) ClearFile() {
	c.stopWorker()
	c.mu.Lock()
	c.path = ""
	c.mu.Unlock()
}

// File returns the bound file path.
func (c *FileOutputCommunicator) File() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *FileOutputCommunicator) Receive() bool {
	if c.rxCount == 0 && c.acked.Load() > 0 {
		c.acked.Add(-1)
		c.rxChunk = 0b001
		c.rxCount = 3
	}
	if c.rxCount != 0 {
		out := c.rxChunk&1 != 0
		c.rxChunk >>= 1
		c.rxCount--
		return out
	}
	return false
}

func (c *FileOutputCommunicator) Transmit(value bool) {
	// Retry bytes that did not fit in the channel earlier.
	for len(c.overflow) > 0 && c.trySend(c.overflow[0]) {
		c.overflow = c.overflow[1:]
	}

	if value {
		c.txChunk |= 1 << c.txCount
	}
	if c.txChunk == 0 {
		return
	}
	c.txCount++
	if c.txCount < 3 {
		return
	}
	switch c.txChunk & 0b111 {
	case 0b001:
		if c.txCount == 11 {
			b := byte(c.txChunk >> 3)
			if len(c.overflow) > 0 || !c.trySend(b) {
				c.overflow = append(c.overflow, b)
			}
			c.txChunk, c.txCount = 0, 0
		}
	default:
		c.txChunk, c.txCount = 0, 0
	}
}

func (c *FileOutputCommunicator) trySend(b byte) bool {
	if c.bytes == nil {
		return true // no file bound, discard
	}
	select {
	case c.bytes <- b:
		return true
	default:
		return false
	}
}

// Reset stops the writer, clears the protocol state and reopens the bound
// file from scratch.
func (c *FileOutputCommunicator) Reset() {
	c.stopWorker()
	c.overflow = nil
	c.rxChunk, c.rxCount = 0, 0
	c.txChunk, c.txCount = 0, 0
	c.acked.Store(0)
	c.startWorker()
}

func (c *FileOutputCommunicator) startWorker() {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.bytes = make(chan byte, fileCommBuf)
	go writeFile(f, c.bytes, &c.acked, c.stop, c.done)
}

func (c *FileOutputCommunicator) stopWorker() {
	if c.stop != nil {
		close(c.stop)
		<-c.done
		c.stop, c.done, c.bytes = nil, nil, nil
	}
}

// Close releases the writer goroutine.
func (c *FileOutputCommunicator) Close() { c.stopWorker() }

// writeFile drains in to f, acknowledging each written byte.
func writeFile(f *os.File, in <-chan byte, acked *atomic.Int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer f.Close()
	for {
		select {
		case b := <-in:
			if _, err := f.Write([]byte{b}); err != nil {
				return
			}
			acked.Add(1)
		case <-stop:
			// Flush whatever is still queued.
			for {
				select {
				case b := <-in:
					if _, err := f.Write([]byte{b}); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
