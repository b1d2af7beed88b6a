// Package config reads flight controller connection settings from HCL.
package config

import (
	"io/ioutil"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/gomsp/msp-go/log2"
	"github.com/gomsp/msp-go/tele"
)

type Config struct {
	Device struct {
		Path          string `hcl:"path"`
		Baud          int    `hcl:"baud"`
		Driver        string `hcl:"driver"` // serial|file
		ReadTimeoutMs int    `hcl:"read_timeout_ms"`
	} `hcl:"device"`

	Protocol struct {
		// 1 = MSPv1 '$M', 2 = MSPv2 '$X'
		Version          int `hcl:"version"`
		RequestTimeoutMs int `hcl:"request_timeout_ms"`
		ArmTimeoutMs     int `hcl:"arm_timeout_ms"`
	} `hcl:"protocol"`

	// Mutually exclusive feature sets: enabling one member disables the
	// others. Declared data, not engine knowledge.
	FeatureGroups []FeatureGroup `hcl:"feature_group"`

	Tele tele.Config `hcl:"tele"`
}

type FeatureGroup struct {
	Name    string   `hcl:"name,key"`
	Members []string `hcl:"members"`
}

func Default() *Config {
	c := &Config{}
	c.Device.Path = "/dev/ttyUSB0"
	c.Device.Baud = 115200
	c.Device.Driver = "serial"
	c.Device.ReadTimeoutMs = 50
	c.Protocol.Version = 1
	c.Protocol.RequestTimeoutMs = 500
	c.Protocol.ArmTimeoutMs = 5000
	c.FeatureGroups = []FeatureGroup{
		{Name: "rx", Members: []string{"RX_MSP", "RX_PARALLEL_PWM", "RX_PPM", "RX_SERIAL"}},
	}
	return c
}

// Parse unmarshals HCL on top of defaults.
func Parse(bs []byte) (*Config, error) {
	c := Default()
	// replaced wholesale when the config declares its own groups
	defaultGroups := c.FeatureGroups
	c.FeatureGroups = nil
	if err := hcl.Unmarshal(bs, c); err != nil {
		return nil, errors.Annotate(err, "config unmarshal")
	}
	if len(c.FeatureGroups) == 0 {
		c.FeatureGroups = defaultGroups
	}
	return c, nil
}

func ReadFile(log *log2.Log, path string) (*Config, error) {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config path=%s", path)
	}
	log.Debugf("config read path=%s bytes=%d", path, len(bs))
	return Parse(bs)
}

func MustReadFile(log *log2.Log, path string) *Config {
	c, err := ReadFile(log, path)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Device.ReadTimeoutMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Protocol.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) ArmTimeout() time.Duration {
	return time.Duration(c.Protocol.ArmTimeoutMs) * time.Millisecond
}

// Groups flattens FeatureGroups to member lists.
func (c *Config) Groups() [][]string {
	gs := make([][]string, 0, len(c.FeatureGroups))
	for _, g := range c.FeatureGroups {
		if len(g.Members) > 1 {
			gs = append(gs, g.Members)
		}
	}
	return gs
}
