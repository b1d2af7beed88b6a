// Package fcu is the high level flight controller facade. Every
// operation delegates to the msp.Client protocol engine.
package fcu

import (
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"

	"github.com/gomsp/msp-go/fcu/config"
	"github.com/gomsp/msp-go/log2"
	"github.com/gomsp/msp-go/msp"
	"github.com/gomsp/msp-go/msp/msg"
)

const modName string = "fcu"

type FirmwareType uint8

const (
	FirmwareUnknown FirmwareType = iota
	FirmwareMultiWii
	FirmwareCleanflight
)

type FlightController struct {
	Log *log2.Log

	client     *msp.Client
	timeout    time.Duration
	armTimeout time.Duration
	groups     [][]string

	// snapshot of identity/capability queries, populated by
	// Initialise, read-mostly afterward
	lk         sync.Mutex
	ident      msg.Ident
	sensors    msg.Sensor
	boxNames   []string
	boxIds     []uint8
	channelMap []uint8
	firmware   FirmwareType
}

func New(u msp.Uarter, cfg *config.Config, log *log2.Log) (*FlightController, error) {
	client, err := msp.NewClient(u, cfg.Device.Path, cfg.Device.Baud, log)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Protocol.Version == 2 {
		client.Version = msp.V2
	}
	self := &FlightController{
		Log:        log,
		client:     client,
		timeout:    cfg.RequestTimeout(),
		armTimeout: cfg.ArmTimeout(),
		groups:     cfg.Groups(),
	}
	return self, nil
}

// NewSerial opens the configured serial driver.
func NewSerial(cfg *config.Config, log *log2.Log) (*FlightController, error) {
	u, err := newUarter(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return New(u, cfg, log)
}

func (self *FlightController) Client() *msp.Client { return self.client }

func (self *FlightController) Close() error { return self.client.Close() }

// Engine passthroughs. The facade adds nothing here, it only narrows
// the surface consumers see.

func (self *FlightController) Subscribe(m msp.Decoder, cb func(msp.Decoder), period time.Duration) *msp.Subscription {
	return self.client.Subscribe(m, cb, period)
}

func (self *FlightController) HasSubscription(id uint8) bool { return self.client.HasSubscription(id) }

func (self *FlightController) GetSubscription(id uint8) *msp.Subscription {
	return self.client.GetSubscription(id)
}

// Handle listens for one message and runs matching callbacks.
func (self *FlightController) Handle() error { return self.client.Handle() }

func (self *FlightController) SendRequest(id uint8) error { return self.client.SendRequest(id) }

// Request and RequestRaw substitute the configured request timeout for
// timeout<=0; use the engine directly to wait without bound.
func (self *FlightController) Request(m msp.Decoder, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = self.timeout
	}
	return self.client.Request(m, timeout)
}

func (self *FlightController) RequestRaw(id uint8, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = self.timeout
	}
	return self.client.RequestRaw(id, timeout)
}

func (self *FlightController) Respond(m msp.Encoder) error { return self.client.Respond(m) }

func (self *FlightController) RespondRaw(id uint8, payload []byte) error {
	return self.client.RespondRaw(id, payload)
}

// WaitForConnection polls the identity query until the controller
// answers. Boot noise on the wire is handled by codec resync.
func (self *FlightController) WaitForConnection(deadline time.Duration) error {
	tbegin := atomic_clock.Now()
	for {
		var ident msg.Ident
		err := self.client.Request(&ident, self.timeout)
		if err == nil {
			return nil
		}
		if !errors.IsTimeout(errors.Cause(err)) {
			return errors.Annotate(err, "wait for connection")
		}
		if atomic_clock.Since(tbegin) >= deadline {
			return errors.Timeoutf("no controller response in %v", deadline)
		}
	}
}

// Initialise populates the controller snapshot: identity, sensors,
// boxes, channel map, firmware family.
func (self *FlightController) Initialise() error {
	var ident msg.Ident
	if err := self.client.Request(&ident, self.timeout); err != nil {
		return errors.Annotate(err, "initialise ident")
	}
	var status msg.Status
	if err := self.client.Request(&status, self.timeout); err != nil {
		return errors.Annotate(err, "initialise status")
	}
	var boxes msg.BoxNames
	if err := self.client.Request(&boxes, self.timeout); err != nil {
		return errors.Annotate(err, "initialise boxes")
	}

	firmware := FirmwareMultiWii
	var api msg.ApiVersion
	if err := self.client.Request(&api, self.timeout); err == nil {
		firmware = FirmwareCleanflight
	} else {
		self.Log.Debugf("%s no api version, assuming MultiWii: %v", modName, err)
	}

	// optional on older firmware
	var boxIds msg.BoxIds
	if err := self.client.Request(&boxIds, self.timeout); err != nil {
		self.Log.Debugf("%s box ids unavailable: %v", modName, err)
		boxIds.Ids = nil
	}
	channelMap := []uint8{0, 1, 2, 3, 4, 5, 6, 7}
	var rxMap msg.RxMap
	if err := self.client.Request(&rxMap, self.timeout); err != nil {
		self.Log.Debugf("%s rx map unavailable, using default order: %v", modName, err)
	} else {
		channelMap = rxMap.Map
	}

	self.lk.Lock()
	self.ident = ident
	self.sensors = status.Sensors
	self.boxNames = boxes.Names
	self.boxIds = boxIds.Ids
	self.channelMap = channelMap
	self.firmware = firmware
	self.lk.Unlock()
	self.Log.Infof("%s initialised version=%d multitype=%d boxes=%d firmware=%d",
		modName, ident.Version, ident.MultiType, len(boxes.Names), firmware)
	return nil
}

func (self *FlightController) Ident() msg.Ident {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.ident
}

func (self *FlightController) IsFirmware(t FirmwareType) bool {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.firmware == t
}

func (self *FlightController) IsFirmwareMultiWii() bool    { return self.IsFirmware(FirmwareMultiWii) }
func (self *FlightController) IsFirmwareCleanflight() bool { return self.IsFirmware(FirmwareCleanflight) }

func (self *FlightController) HasCapability(c msg.Capability) bool {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.ident.Has(c)
}

func (self *FlightController) HasBind() bool   { return self.HasCapability(msg.CapBind) }
func (self *FlightController) HasDynBal() bool { return self.HasCapability(msg.CapDynBal) }
func (self *FlightController) HasFlap() bool   { return self.HasCapability(msg.CapFlap) }

func (self *FlightController) HasSensor(s msg.Sensor) bool {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.sensors&s != 0
}

func (self *FlightController) HasAccelerometer() bool { return self.HasSensor(msg.SensorAcc) }
func (self *FlightController) HasBarometer() bool     { return self.HasSensor(msg.SensorBaro) }
func (self *FlightController) HasMagnetometer() bool  { return self.HasSensor(msg.SensorMag) }
func (self *FlightController) HasGPS() bool           { return self.HasSensor(msg.SensorGPS) }
func (self *FlightController) HasSonar() bool         { return self.HasSensor(msg.SensorSonar) }

// BoxIds returns the firmware-permanent box ids captured during
// Initialise, nil on firmware without MSP_BOXIDS.
func (self *FlightController) BoxIds() []uint8 {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.boxIds
}

// BoxNameIds maps box name to its activation bit index.
func (self *FlightController) BoxNameIds() map[string]int {
	self.lk.Lock()
	defer self.lk.Unlock()
	m := make(map[string]int, len(self.boxNames))
	for i, name := range self.boxNames {
		m[name] = i
	}
	return m
}

func (self *FlightController) boxIndex(name string) (int, bool) {
	self.lk.Lock()
	defer self.lk.Unlock()
	for i, n := range self.boxNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// IsStatusActive queries fresh status and checks the named box bit.
func (self *FlightController) IsStatusActive(name string) (bool, error) {
	idx, ok := self.boxIndex(name)
	if !ok {
		return false, errors.NotFoundf("box %q (forgot Initialise?)", name)
	}
	var status msg.Status
	if err := self.client.Request(&status, self.timeout); err != nil {
		return false, errors.Trace(err)
	}
	return status.BoxActive(idx), nil
}

func (self *FlightController) IsArmed() (bool, error)          { return self.IsStatusActive("ARM") }
func (self *FlightController) IsStatusFailsafe() (bool, error) { return self.IsStatusActive("FAILSAFE") }

// SetRc sets channels in function order roll, pitch, yaw, throttle,
// aux1..4, translated through the controller's channel map.
func (self *FlightController) SetRc(roll, pitch, yaw, throttle, aux1, aux2, aux3, aux4 uint16, auxs ...uint16) error {
	vals := [8]uint16{roll, pitch, yaw, throttle, aux1, aux2, aux3, aux4}
	channels := make([]uint16, 8+len(auxs))
	self.lk.Lock()
	cmap := self.channelMap
	self.lk.Unlock()
	for i, v := range vals {
		ch := i
		if i < len(cmap) && int(cmap[i]) < 8 {
			ch = int(cmap[i])
		}
		channels[ch] = v
	}
	copy(channels[8:], auxs)
	return self.SetRcRaw(channels...)
}

// SetRcRaw sets channels exactly as the controller interprets them.
func (self *FlightController) SetRcRaw(channels ...uint16) error {
	return self.client.SendMessage(&msg.SetRawRc{Channels: channels})
}

func (self *FlightController) SetMotors(values [msg.NMotor]uint16) error {
	return self.client.SendMessage(&msg.SetMotor{Values: values})
}

// Arm commands arming (aux1 high) or disarming (aux1 low) with sticks
// neutral and throttle low. Command only: see ArmBlock for confirmation.
func (self *FlightController) Arm(arm bool) error {
	aux1 := uint16(1000)
	if arm {
		aux1 = 2000
	}
	return self.SetRc(1500, 1500, 1500, 1000, aux1, 1000, 1000, 1000)
}

// ArmBlock arms and waits until the controller reports the ARM box
// active, or the arm timeout elapses.
func (self *FlightController) ArmBlock() error { return self.armTransition(true) }

// DisarmBlock disarms and waits for status feedback.
func (self *FlightController) DisarmBlock() error { return self.armTransition(false) }

func (self *FlightController) armTransition(want bool) error {
	tbegin := atomic_clock.Now()
	for {
		if err := self.Arm(want); err != nil {
			return errors.Trace(err)
		}
		// bounded per-attempt poll inside the outer deadline
		armed, err := self.IsArmed()
		if err == nil && armed == want {
			return nil
		}
		if err != nil && !errors.IsTimeout(errors.Cause(err)) {
			return errors.Trace(err)
		}
		if atomic_clock.Since(tbegin) >= self.armTimeout {
			return errors.Timeoutf("arm=%t not confirmed in %v", want, self.armTimeout)
		}
	}
}

// Reboot restarts the controller.
func (self *FlightController) Reboot() error {
	return errors.Trace(self.client.Request(new(msg.Reboot), self.timeout))
}

// WriteEEPROM persists current settings to nonvolatile storage.
func (self *FlightController) WriteEEPROM() error {
	return errors.Trace(self.client.Request(new(msg.EepromWrite), self.timeout))
}
