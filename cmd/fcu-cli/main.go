// fcu-cli is an interactive console for poking a flight controller
// over MSP. Commands come from a prompt on a tty or line by line from
// stdin.
package main

import (
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"

	"github.com/gomsp/msp-go/fcu"
	"github.com/gomsp/msp-go/fcu/config"
	"github.com/gomsp/msp-go/helpers"
	"github.com/gomsp/msp-go/helpers/cli"
	"github.com/gomsp/msp-go/log2"
	"github.com/gomsp/msp-go/msp/msg"
	"github.com/gomsp/msp-go/tele"
)

const usage = `syntax: commands separated by whitespace
(query)
- ident      board identity and capabilities
- status     cycle time, sensors, active boxes
- analog     battery and link diagnostics
- imu        raw accelerometer/gyro/mag
- rc         current rc channel values
- motor      current motor outputs
- feature    enabled feature names
- box        per-box activation masks

(command)
- arm        arm and wait for confirmation
- disarm     disarm and wait for confirmation
- rc=R,P,Y,T[,A1..]  set rc channels (function order)
- motor=V1,..,V8     set motor outputs
- feature+NAME       enable feature, persist, reboot
- feature-NAME       disable feature, persist, reboot
- rxmsp      enable RX_MSP receiver input
- eeprom     persist settings
- reboot     restart the controller
- @N         request message id N, show raw payload hex

(telemetry)
- sub=N,P    subscribe to id N every P ms, print or publish to MQTT
- unsub=N    drop the subscription for id N

(meta)
- sN         pause N milliseconds
- log=yes    enable debug logging
- log=no     disable debug logging
- loop=N     repeat N times all commands on this line
`

var log = log2.NewStderr(log2.LDebug)
var bridge *tele.Tele

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := cmdline.String("config", "", "path to HCL config")
	devicePath := cmdline.String("device", "", "serial device path, overrides config")
	baud := cmdline.Int("baud", 0, "baud rate, overrides config")
	v2 := cmdline.Bool("v2", false, "use MSPv2 framing")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	cfg := config.Default()
	if *configPath != "" {
		cfg = config.MustReadFile(log, *configPath)
	}
	if *devicePath != "" {
		cfg.Device.Path = *devicePath
	}
	if *baud != 0 {
		cfg.Device.Baud = *baud
	}
	if *v2 {
		cfg.Protocol.Version = 2
	}

	fc, err := fcu.NewSerial(cfg, log)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if cfg.Tele.Enable {
		if bridge, err = tele.New(cfg.Tele, log); err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
	}
	defer func() {
		errs := make([]error, 0, 2)
		if bridge != nil {
			errs = append(errs, bridge.Close())
		}
		errs = append(errs, fc.Close())
		if err := helpers.FoldErrors(errs); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("waiting for controller on %s", cfg.Device.Path)
	if err := fc.WaitForConnection(30 * time.Second); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if err := fc.Initialise(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	cli.MainLoop("fcu-cli", newExecutor(fc), newCompleter())
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "ident", Description: "board identity"},
		{Text: "status", Description: "sensors and active boxes"},
		{Text: "analog", Description: "battery and link"},
		{Text: "imu", Description: "raw imu"},
		{Text: "rc", Description: "rc channel values"},
		{Text: "motor", Description: "motor outputs"},
		{Text: "feature", Description: "enabled features"},
		{Text: "box", Description: "box activation masks"},
		{Text: "arm", Description: "arm, wait for confirmation"},
		{Text: "disarm", Description: "disarm, wait for confirmation"},
		{Text: "rxmsp", Description: "enable RX_MSP input"},
		{Text: "eeprom", Description: "persist settings"},
		{Text: "reboot", Description: "restart controller"},
		{Text: "sub=N,P", Description: "subscribe to message id"},
		{Text: "unsub=N", Description: "drop subscription"},
		{Text: "sN", Description: "pause for N ms"},
		{Text: "loop=N", Description: "repeat line N times"},
		{Text: "@N", Description: "raw request by message id"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

type doer func(fc *fcu.FlightController) error

func newExecutor(fc *fcu.FlightController) func(string) {
	return func(line string) {
		ds, loopn, err := parseLine(line)
		if err != nil {
			log.Errorf(errors.ErrorStack(err))
			return
		}
		if loopn == 0 {
			loopn = 1
		}
		for i := uint(0); i < loopn; i++ {
			for _, d := range ds {
				if err := d(fc); err != nil {
					log.Errorf(errors.ErrorStack(err))
					return
				}
			}
		}
	}
}

func parseLine(line string) ([]doer, uint, error) {
	words := strings.Fields(line)
	ds := make([]doer, 0, len(words))
	loopn := uint(0)
	for _, word := range words {
		switch {
		case word == "help":
			ds = append(ds, func(*fcu.FlightController) error {
				log.Infof(usage)
				return nil
			})
		case strings.HasPrefix(word, "loop="):
			if loopn != 0 {
				return nil, 0, errors.Errorf("multiple loop commands, expected at most one")
			}
			i, err := strconv.ParseUint(word[5:], 10, 32)
			if err != nil {
				return nil, 0, errors.Annotatef(err, "word=%s", word)
			}
			loopn = uint(i)
		default:
			d, err := parseCommand(word)
			if err != nil {
				return nil, 0, err
			}
			ds = append(ds, d)
		}
	}
	return ds, loopn, nil
}

func parseCommand(word string) (doer, error) {
	switch {
	case word == "ident":
		return doIdent, nil
	case word == "status":
		return doStatus, nil
	case word == "analog":
		return doAnalog, nil
	case word == "imu":
		return doImu, nil
	case word == "rc":
		return doRc, nil
	case word == "motor":
		return doMotor, nil
	case word == "feature":
		return doFeature, nil
	case word == "box":
		return doBox, nil
	case word == "arm":
		return func(fc *fcu.FlightController) error { return fc.ArmBlock() }, nil
	case word == "disarm":
		return func(fc *fcu.FlightController) error { return fc.DisarmBlock() }, nil
	case word == "rxmsp":
		return func(fc *fcu.FlightController) error {
			r, err := fc.EnableRxMSP()
			log.Infof("rxmsp %s", r)
			return err
		}, nil
	case word == "eeprom":
		return func(fc *fcu.FlightController) error { return fc.WriteEEPROM() }, nil
	case word == "reboot":
		return func(fc *fcu.FlightController) error { return fc.Reboot() }, nil
	case word == "log=yes":
		return func(*fcu.FlightController) error { log.SetLevel(log2.LDebug); return nil }, nil
	case word == "log=no":
		return func(*fcu.FlightController) error { log.SetLevel(log2.LError); return nil }, nil
	case strings.HasPrefix(word, "rc="):
		return parseSetRc(word[3:])
	case strings.HasPrefix(word, "motor="):
		return parseSetMotor(word[6:])
	case strings.HasPrefix(word, "sub="):
		return parseSub(word[4:])
	case strings.HasPrefix(word, "unsub="):
		i, err := strconv.ParseUint(word[6:], 10, 8)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return func(fc *fcu.FlightController) error {
			fc.Client().Unsubscribe(uint8(i))
			return nil
		}, nil
	case strings.HasPrefix(word, "feature+"):
		return newUpdateFeature(word[8:], true), nil
	case strings.HasPrefix(word, "feature-"):
		return newUpdateFeature(word[8:], false), nil
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return func(*fcu.FlightController) error {
			time.Sleep(time.Duration(i) * time.Millisecond)
			return nil
		}, nil
	case word[0] == '@':
		i, err := strconv.ParseUint(word[1:], 10, 8)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		id := uint8(i)
		return func(fc *fcu.FlightController) error {
			b, err := fc.RequestRaw(id, 0)
			if err != nil {
				return err
			}
			log.Infof("< id=%d (%d)%s", id, len(b), hex.EncodeToString(b))
			return nil
		}, nil
	default:
		return nil, errors.Errorf("error: invalid command: '%s'", word)
	}
}

func doIdent(fc *fcu.FlightController) error {
	var m msg.Ident
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	log.Infof("version=%d multitype=%d msp=%d cap=%08b", m.Version, m.MultiType, m.MSPVersion, m.Capabilities)
	return nil
}

func doStatus(fc *fcu.FlightController) error {
	var m msg.Status
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	active := make([]string, 0, 4)
	for name, i := range fc.BoxNameIds() {
		if m.BoxActive(i) {
			active = append(active, name)
		}
	}
	log.Infof("cycle=%dus i2cerr=%d sensors=%05b boxes=%s", m.CycleTimeUs, m.I2CErrors, m.Sensors, strings.Join(active, ","))
	return nil
}

func doAnalog(fc *fcu.FlightController) error {
	var m msg.Analog
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	log.Infof("vbat=%.1fV rssi=%d amps=%d", float64(m.VbatDeciVolt)/10, m.Rssi, m.Amperage)
	return nil
}

func doImu(fc *fcu.FlightController) error {
	var m msg.RawImu
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	log.Infof("acc=%v gyro=%v mag=%v", m.Acc, m.Gyro, m.Mag)
	return nil
}

func doRc(fc *fcu.FlightController) error {
	var m msg.Rc
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	log.Infof("rc=%v", m.Channels)
	return nil
}

func doMotor(fc *fcu.FlightController) error {
	var m msg.Motor
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	log.Infof("motor=%v", m.Values)
	return nil
}

func doFeature(fc *fcu.FlightController) error {
	var m msg.Feature
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	names := make([]string, 0, 8)
	for _, name := range msg.FeatureNames {
		if m.HasName(name) {
			names = append(names, name)
		}
	}
	log.Infof("feature mask=%08x %s", m.Mask, strings.Join(names, ","))
	return nil
}

func doBox(fc *fcu.FlightController) error {
	var m msg.Box
	if err := fc.Request(&m, 0); err != nil {
		return err
	}
	byIndex := make([]string, len(m.Items))
	for name, i := range fc.BoxNameIds() {
		if i < len(byIndex) {
			byIndex[i] = name
		}
	}
	for i, item := range m.Items {
		log.Infof("box %d %s mask=%04x", i, byIndex[i], item)
	}
	return nil
}

func newUpdateFeature(name string, enable bool) doer {
	return func(fc *fcu.FlightController) error {
		var add, remove []string
		if enable {
			add = []string{name}
		} else {
			remove = []string{name}
		}
		r, err := fc.UpdateFeatures(add, remove)
		log.Infof("feature %s %s", name, r)
		return err
	}
}

func parseSub(arg string) (doer, error) {
	parts := strings.SplitN(arg, ",", 2)
	id64, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return nil, errors.Annotatef(err, "sub id=%s", parts[0])
	}
	id := uint8(id64)
	period := time.Duration(0)
	if len(parts) == 2 {
		ms, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "sub period=%s", parts[1])
		}
		period = time.Duration(ms) * time.Millisecond
	}
	return func(fc *fcu.FlightController) error {
		if bridge != nil {
			bridge.Bind(fc.Client(), id, period)
		} else {
			fc.Client().SubscribeRaw(id, func(b []byte) {
				log.Infof("< id=%d (%d)%s", id, len(b), hex.EncodeToString(b))
			}, period)
		}
		// dispatch runs in the background between prompt commands
		fc.Client().Start()
		return nil
	}, nil
}

func parseSetRc(arg string) (doer, error) {
	vals, err := parseU16List(arg)
	if err != nil {
		return nil, err
	}
	if len(vals) < 4 {
		return nil, errors.Errorf("rc= wants at least roll,pitch,yaw,throttle")
	}
	for len(vals) < 8 {
		vals = append(vals, 1000)
	}
	return func(fc *fcu.FlightController) error {
		return fc.SetRc(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], vals[7], vals[8:]...)
	}, nil
}

func parseSetMotor(arg string) (doer, error) {
	vals, err := parseU16List(arg)
	if err != nil {
		return nil, err
	}
	var values [msg.NMotor]uint16
	copy(values[:], vals)
	return func(fc *fcu.FlightController) error {
		return fc.SetMotors(values)
	}, nil
}

func parseU16List(arg string) ([]uint16, error) {
	parts := strings.Split(arg, ",")
	vals := make([]uint16, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, errors.Annotatef(err, "value=%s", p)
		}
		vals = append(vals, uint16(i))
	}
	return vals, nil
}
