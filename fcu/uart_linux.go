//go:build linux
// +build linux

package fcu

import (
	"github.com/juju/errors"

	"github.com/gomsp/msp-go/fcu/config"
	"github.com/gomsp/msp-go/msp"
)

func newUarter(cfg *config.Config) (msp.Uarter, error) {
	switch cfg.Device.Driver {
	case "", "serial":
		return msp.NewSerialUart(cfg.ReadTimeout()), nil
	case "file":
		return msp.NewFileUart(cfg.ReadTimeout()), nil
	default:
		return nil, errors.NotSupportedf("device driver=%s", cfg.Device.Driver)
	}
}
