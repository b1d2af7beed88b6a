package msp

// Public API to easy create flight controller stubs to test your code.

import (
	"sync"
	"testing"
	"time"

	"github.com/temoto/alive/v2"

	"github.com/gomsp/msp-go/log2"
)

// ChanIO is a channel-backed Uarter: tests inject inbound bytes on In,
// every engine Write lands on Out as one item.
type ChanIO struct {
	In  chan []byte
	Out chan []byte

	rbuf        []byte
	readTimeout time.Duration
	guard       time.Duration
}

func NewChanIO(readTimeout time.Duration) *ChanIO {
	return &ChanIO{
		In:          make(chan []byte, 32),
		Out:         make(chan []byte, 32),
		readTimeout: readTimeout,
		guard:       5 * time.Second,
	}
}

func (self *ChanIO) Open(path string, baud int) error { return nil }
func (self *ChanIO) Close() error                     { return nil }

func (self *ChanIO) Read(p []byte) (int, error) {
	if len(self.rbuf) == 0 {
		select {
		case b := <-self.In:
			self.rbuf = b
		case <-time.After(self.readTimeout):
			return 0, ErrReadTimeout
		}
	}
	n := copy(p, self.rbuf)
	self.rbuf = self.rbuf[n:]
	return n, nil
}

func (self *ChanIO) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	select {
	case self.Out <- b:
		return len(p), nil
	case <-time.After(self.guard):
		panic("msp mock ChanIO.Write timeout guard")
	}
}

// TestDevice simulates the controller end of the wire: it parses frames
// the engine sends and answers through stubbed handlers.
type TestDevice struct {
	t     testing.TB
	cio   *ChanIO
	alive *alive.Alive

	lk       sync.Mutex
	handlers map[uint8]func(req *Frame) ([]byte, bool)
	fallback func(req *Frame) ([]byte, bool)
}

func NewTestDevice(t testing.TB, cio *ChanIO) *TestDevice {
	self := &TestDevice{
		t:        t,
		cio:      cio,
		alive:    alive.NewAlive(),
		handlers: make(map[uint8]func(req *Frame) ([]byte, bool)),
	}
	if !self.alive.Add(1) {
		panic("code error")
	}
	go self.loop()
	return self
}

// Stub always answers id with payload.
func (self *TestDevice) Stub(id uint8, payload []byte) {
	self.StubFunc(id, func(req *Frame) ([]byte, bool) { return payload, true })
}

// StubFunc answers id through fn; fn returning ok=false drops the
// request (the engine side will time out).
func (self *TestDevice) StubFunc(id uint8, fn func(req *Frame) ([]byte, bool)) {
	self.lk.Lock()
	self.handlers[id] = fn
	self.lk.Unlock()
}

// StubDefault answers every id without an explicit handler.
func (self *TestDevice) StubDefault(fn func(req *Frame) ([]byte, bool)) {
	self.lk.Lock()
	self.fallback = fn
	self.lk.Unlock()
}

func (self *TestDevice) Stop() {
	self.alive.Stop()
	self.alive.Wait()
}

func (self *TestDevice) loop() {
	defer self.alive.Done()
	for self.alive.IsRunning() {
		var b []byte
		select {
		case b = <-self.cio.Out:
		case <-self.alive.StopChan():
			return
		}
		f, err := Decode(b)
		if err != nil {
			self.t.Errorf("test device: decode sent=%x err=%v", b, err)
			continue
		}
		self.lk.Lock()
		h := self.handlers[f.ID]
		if h == nil {
			h = self.fallback
		}
		self.lk.Unlock()
		if h == nil {
			continue
		}
		payload, ok := h(f)
		if !ok {
			continue
		}
		reply, err := Encode(f.V, DirFromFC, f.ID, payload)
		if err != nil {
			self.t.Errorf("test device: encode id=%d err=%v", f.ID, err)
			continue
		}
		self.cio.In <- reply
	}
}

// NewTestClient wires a Client to a simulated device over ChanIO.
func NewTestClient(t testing.TB) (*Client, *TestDevice, *ChanIO) {
	cio := NewChanIO(20 * time.Millisecond)
	c, err := NewClient(cio, "", 0, log2.NewTest(t, log2.LDebug))
	if err != nil {
		t.Fatal(err)
	}
	dev := NewTestDevice(t, cio)
	return c, dev, cio
}
