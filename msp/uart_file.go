//go:build linux
// +build linux

package msp

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// fileUart drives the serial device directly through termios, no
// third-party port layer. VMIN=0 VTIME>0 gives the bounded read the
// engine needs.
type fileUart struct {
	f           *os.File
	readTimeout time.Duration
}

func NewFileUart(readTimeout time.Duration) *fileUart {
	if readTimeout == 0 {
		readTimeout = 100 * time.Millisecond
	}
	return &fileUart{readTimeout: readTimeout}
}

var baudFlags = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

func (self *fileUart) Open(path string, baud int) (err error) {
	speed, ok := baudFlags[baud]
	if !ok {
		return errors.NotSupportedf("baud=%d", baud)
	}
	if self.f != nil {
		self.f.Close()
	}
	self.f, err = os.OpenFile(path, syscall.O_RDWR|syscall.O_NOCTTY, 0600)
	if err != nil {
		return errors.Trace(err)
	}

	vtime := uint8(self.readTimeout / (100 * time.Millisecond))
	if vtime == 0 {
		vtime = 1
	}
	t := unix.Termios{
		Iflag:  unix.IGNBRK,
		Cflag:  unix.CLOCAL | unix.CREAD | unix.CS8 | speed,
		Ispeed: speed,
		Ospeed: speed,
	}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = vtime
	if err = unix.IoctlSetTermios(int(self.f.Fd()), unix.TCSETSF, &t); err != nil {
		self.f.Close()
		self.f = nil
		return errors.Annotatef(err, "termios path=%s", path)
	}
	return nil
}

func (self *fileUart) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f = nil
	return err
}

func (self *fileUart) Read(p []byte) (int, error) {
	n, err := self.f.Read(p)
	// VTIME expiry: read(2) returns 0 bytes, os.File maps that to EOF
	if n == 0 && (err == nil || err == io.EOF) {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (self *fileUart) Write(p []byte) (int, error) { return self.f.Write(p) }
