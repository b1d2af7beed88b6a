package msp

import (
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/tarm/serial"
)

// Uarter is the transport boundary: a byte-stream endpoint with
// blocking-with-timeout read and synchronous write. Opening and
// configuring the physical device is the implementation's job.
type Uarter interface {
	Open(path string, baud int) error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Read deadline expired with no bytes. Not a transport failure.
var ErrReadTimeout = errors.Timeoutf("msp: uart read timeout")

type serialUart struct {
	p           *serial.Port
	readTimeout time.Duration
}

// NewSerialUart returns a portable Uarter on top of tarm/serial.
// readTimeout bounds every Read so the dispatch loop can re-check
// deadlines; it is not the request timeout.
func NewSerialUart(readTimeout time.Duration) *serialUart {
	if readTimeout == 0 {
		readTimeout = 50 * time.Millisecond
	}
	return &serialUart{readTimeout: readTimeout}
}

func (self *serialUart) Open(path string, baud int) (err error) {
	if self.p != nil {
		self.p.Close()
	}
	self.p, err = serial.OpenPort(&serial.Config{
		Name:        path,
		Baud:        baud,
		ReadTimeout: self.readTimeout,
	})
	return errors.Annotatef(err, "serial open path=%s baud=%d", path, baud)
}

func (self *serialUart) Close() error {
	if self.p == nil {
		return nil
	}
	err := self.p.Close()
	self.p = nil
	return err
}

func (self *serialUart) Read(p []byte) (int, error) {
	n, err := self.p.Read(p)
	if n == 0 && (err == nil || err == io.EOF) {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (self *serialUart) Write(p []byte) (int, error) { return self.p.Write(p) }
