package msp

import (
	"bufio"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/atomic_clock"

	"github.com/gomsp/msp-go/log2"
)

const modName string = "msp-client"

const DefaultTimeout = 500 * time.Millisecond

// Message catalogue boundary. The engine never looks inside payloads;
// concrete kinds live in msp/msg.
type Decoder interface {
	ID() uint8
	Decode(b []byte) error
}
type Encoder interface {
	ID() uint8
	Encode() []byte
}

// Subscription turns inbound frames of one id into callback
// invocations; Period>0 additionally re-requests that id on a timer.
type Subscription struct {
	ID     uint8
	Period time.Duration

	invoke    func(b []byte)
	lastFired *atomic_clock.Clock
}

type result struct {
	b []byte
	e error
}

type pendingRequest struct {
	ch chan result
}

type Stat struct {
	Request  uint32
	Sent     uint32
	Framing  uint32
	Timeout  uint32
	Callback uint32
	Dropped  uint32
}

// Client is the protocol engine: framing, subscription dispatch,
// periodic re-requests, request/response correlation. One Client owns
// one transport.
type Client struct {
	Log     *log2.Log
	Version Version

	uart  Uarter
	br    *bufio.Reader
	alive *alive.Alive

	// Single active reader: whoever holds the token runs the dispatch
	// loop; everyone else parks on its pendingRequest.
	loopTok chan struct{}

	sendLk sync.Mutex

	subsLk sync.Mutex
	subs   map[uint8]*Subscription

	pendLk  sync.Mutex
	pending map[uint8]*pendingRequest

	// same-id requests are serialized, distinct ids run concurrently
	reqLkLk sync.Mutex
	reqLk   map[uint8]*sync.Mutex

	started uint32
	stat    Stat
}

func NewClient(u Uarter, path string, baud int, log *log2.Log) (*Client, error) {
	if baud == 0 {
		baud = 115200
	}
	self := &Client{
		Log:     log,
		Version: V1,
		uart:    u,
		alive:   alive.NewAlive(),
		loopTok: make(chan struct{}, 1),
		subs:    make(map[uint8]*Subscription),
		pending: make(map[uint8]*pendingRequest),
		reqLk:   make(map[uint8]*sync.Mutex),
	}
	if err := u.Open(path, baud); err != nil {
		return nil, errors.Annotatef(err, "msp open device=%s", path)
	}
	self.br = bufio.NewReader(u)
	return self, nil
}

// Start runs the dispatch loop in the background. Optional: callers may
// instead drive the engine themselves with Handle(). Repeated calls are
// no-ops.
func (self *Client) Start() {
	if !atomic.CompareAndSwapUint32(&self.started, 0, 1) {
		return
	}
	if !self.alive.Add(1) {
		return
	}
	go self.backgroundLoop()
}

func (self *Client) Stop() {
	self.alive.Stop()
	self.alive.Wait()
}

func (self *Client) Close() error {
	self.Stop()
	return self.uart.Close()
}

func (self *Client) Stat() Stat {
	return Stat{
		Request:  atomic.LoadUint32(&self.stat.Request),
		Sent:     atomic.LoadUint32(&self.stat.Sent),
		Framing:  atomic.LoadUint32(&self.stat.Framing),
		Timeout:  atomic.LoadUint32(&self.stat.Timeout),
		Callback: atomic.LoadUint32(&self.stat.Callback),
		Dropped:  atomic.LoadUint32(&self.stat.Dropped),
	}
}

// Subscribe registers cb for m's id, replacing any previous
// subscription for that id. Each matching frame is decoded into m and
// cb invoked synchronously on the dispatching goroutine. period=0 means
// push-style only; period>0 re-requests the id on that cadence.
func (self *Client) Subscribe(m Decoder, cb func(Decoder), period time.Duration) *Subscription {
	id := m.ID()
	return self.SubscribeRaw(id, func(b []byte) {
		if err := m.Decode(b); err != nil {
			self.Log.Errorf("%s subscription id=%d decode payload=%x err=%v", modName, id, b, err)
			return
		}
		cb(m)
	}, period)
}

func (self *Client) SubscribeRaw(id uint8, cb func([]byte), period time.Duration) *Subscription {
	sub := &Subscription{
		ID:        id,
		Period:    period,
		invoke:    cb,
		// zero clock: the first tick sees a huge Since and fires
		// immediately
		lastFired: atomic_clock.New(),
	}
	self.subsLk.Lock()
	self.subs[id] = sub
	self.subsLk.Unlock()
	return sub
}

func (self *Client) Unsubscribe(id uint8) {
	self.subsLk.Lock()
	delete(self.subs, id)
	self.subsLk.Unlock()
}

func (self *Client) HasSubscription(id uint8) bool { return self.GetSubscription(id) != nil }

func (self *Client) GetSubscription(id uint8) *Subscription {
	self.subsLk.Lock()
	defer self.subsLk.Unlock()
	return self.subs[id]
}

func (self *Client) send(dir byte, id uint8, payload []byte) error {
	b, err := Encode(self.Version, dir, id, payload)
	if err != nil {
		return errors.Trace(err)
	}
	self.sendLk.Lock()
	defer self.sendLk.Unlock()
	if _, err = self.uart.Write(b); err != nil {
		return errors.Annotatef(err, "msp send id=%d", id)
	}
	atomic.AddUint32(&self.stat.Sent, 1)
	self.Log.Debugf("%s send %c id=%d payload=%x", modName, dir, id, payload)
	return nil
}

// SendRequest is fire-and-forget: the eventual reply arrives through
// the ordinary dispatch path.
func (self *Client) SendRequest(id uint8) error { return self.send(DirToFC, id, nil) }

// SendMessage sends a payload-carrying command without waiting for the
// acknowledgement frame.
func (self *Client) SendMessage(m Encoder) error { return self.send(DirToFC, m.ID(), m.Encode()) }

// Respond/RespondRaw are the server-side dual: answer a request when
// this endpoint is itself queried.
func (self *Client) Respond(m Encoder) error { return self.send(DirFromFC, m.ID(), m.Encode()) }

func (self *Client) RespondRaw(id uint8, payload []byte) error {
	return self.send(DirFromFC, id, payload)
}

// Handle drives one dispatch cycle: tick the scheduler, read one frame,
// route it. Returns nil on framing errors (recovered by resync) and on
// an idle read timeout; an error return means the transport failed.
func (self *Client) Handle() error {
	self.loopTok <- struct{}{}
	defer func() { <-self.loopTok }()
	return self.handleLocked()
}

func (self *Client) handleLocked() error {
	self.tick()
	f, err := ReadFrame(self.br)
	if err != nil {
		if err == ErrReadTimeout {
			return nil
		}
		if IsFraming(err) {
			atomic.AddUint32(&self.stat.Framing, 1)
			self.Log.Debugf("%s resync err=%v", modName, err)
			return nil
		}
		return errors.Annotate(err, "msp transport")
	}
	self.route(f)
	return nil
}

// tick re-requests every due subscription. Fire-and-forget: cadence is
// not hostage to a slow or lost reply.
func (self *Client) tick() {
	due := make([]*Subscription, 0, 4)
	self.subsLk.Lock()
	for _, sub := range self.subs {
		if sub.Period > 0 && atomic_clock.Since(sub.lastFired) >= sub.Period {
			sub.lastFired.SetNow()
			due = append(due, sub)
		}
	}
	self.subsLk.Unlock()
	for _, sub := range due {
		if err := self.SendRequest(sub.ID); err != nil {
			self.Log.Errorf("%s periodic request id=%d err=%v", modName, sub.ID, err)
		}
	}
}

// Every frame goes to at most one consumer, pending request first so a
// blocked caller is never starved by a coincidental subscription.
func (self *Client) route(f *Frame) {
	self.pendLk.Lock()
	p := self.pending[f.ID]
	if p != nil {
		delete(self.pending, f.ID)
	}
	self.pendLk.Unlock()

	if p != nil {
		r := result{b: f.Payload}
		if f.IsError() {
			r = result{e: errors.NotSupportedf("msp id=%d remote error", f.ID)}
		}
		p.ch <- r
		return
	}
	if f.IsError() {
		atomic.AddUint32(&self.stat.Dropped, 1)
		self.Log.Errorf("%s unsolicited error frame %s", modName, f.Format())
		return
	}

	self.subsLk.Lock()
	sub := self.subs[f.ID]
	self.subsLk.Unlock()
	if sub != nil {
		atomic.AddUint32(&self.stat.Callback, 1)
		sub.invoke(f.Payload)
		return
	}

	atomic.AddUint32(&self.stat.Dropped, 1)
	self.Log.Debugf("%s drop frame %s", modName, f.Format())
}

// Request sends m's request frame and blocks until the matching reply
// is decoded into m, or timeout elapses. timeout<=0 waits until the
// client is closed.
func (self *Client) Request(m Decoder, timeout time.Duration) error {
	b, err := self.RequestRaw(m.ID(), timeout)
	if err != nil {
		return errors.Trace(err)
	}
	if err = m.Decode(b); err != nil {
		return errors.Annotatef(err, "msp response id=%d payload=%x", m.ID(), b)
	}
	return nil
}

func (self *Client) RequestRaw(id uint8, timeout time.Duration) ([]byte, error) {
	lk := self.requestLock(id)
	lk.Lock()
	defer lk.Unlock()
	atomic.AddUint32(&self.stat.Request, 1)

	p := &pendingRequest{ch: make(chan result, 1)}
	self.pendLk.Lock()
	self.pending[id] = p
	self.pendLk.Unlock()
	defer func() {
		// no-op when the dispatcher completed us; on timeout this is
		// what discards a late reply
		self.pendLk.Lock()
		if self.pending[id] == p {
			delete(self.pending, id)
		}
		self.pendLk.Unlock()
	}()

	if err := self.SendRequest(id); err != nil {
		return nil, errors.Trace(err)
	}

	var tmrC <-chan time.Time
	if timeout > 0 {
		tmr := time.NewTimer(timeout)
		defer tmr.Stop()
		tmrC = tmr.C
	}
	for {
		// completion has priority over another loop turn
		select {
		case r := <-p.ch:
			return r.b, errors.Trace(r.e)
		default:
		}
		select {
		case r := <-p.ch:
			return r.b, errors.Trace(r.e)
		case <-tmrC:
			atomic.AddUint32(&self.stat.Timeout, 1)
			return nil, errors.Timeoutf("msp request id=%d timeout=%v", id, timeout)
		case <-self.alive.StopChan():
			return nil, errors.Errorf("msp request id=%d client stopped", id)
		case self.loopTok <- struct{}{}:
			err := self.handleLocked()
			<-self.loopTok
			if err != nil {
				return nil, errors.Trace(err)
			}
		}
	}
}

func (self *Client) requestLock(id uint8) *sync.Mutex {
	self.reqLkLk.Lock()
	defer self.reqLkLk.Unlock()
	lk := self.reqLk[id]
	if lk == nil {
		lk = new(sync.Mutex)
		self.reqLk[id] = lk
	}
	return lk
}

func (self *Client) backgroundLoop() {
	defer self.alive.Done()
	for self.alive.IsRunning() {
		select {
		case self.loopTok <- struct{}{}:
			err := self.handleLocked()
			<-self.loopTok
			if err != nil {
				self.Log.Errorf("%s loop stop err=%v", modName, err)
				self.alive.Stop()
				return
			}
		case <-self.alive.StopChan():
			return
		}
	}
}
