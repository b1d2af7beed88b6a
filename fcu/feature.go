package fcu

import (
	"github.com/juju/errors"

	"github.com/gomsp/msp-go/msp/msg"
)

type FeatureResult int8

const (
	FeatureFailed    FeatureResult = -1
	FeatureUnchanged FeatureResult = 0
	FeatureChanged   FeatureResult = 1
)

func (r FeatureResult) String() string {
	switch r {
	case FeatureFailed:
		return "failed"
	case FeatureUnchanged:
		return "unchanged"
	case FeatureChanged:
		return "changed"
	}
	return "?"
}

// UpdateFeatures reads the current feature mask, applies add/remove and
// the configured exclusion groups, and persists only when the mask
// actually changed. A change is followed by EEPROM write and reboot, so
// callers must WaitForConnection again after FeatureChanged.
func (self *FlightController) UpdateFeatures(add, remove []string) (FeatureResult, error) {
	var cur msg.Feature
	if err := self.client.Request(&cur, self.timeout); err != nil {
		return FeatureFailed, errors.Annotate(err, "feature read")
	}

	mask := cur.Mask
	for _, name := range add {
		bit, err := msg.FeatureBit(name)
		if err != nil {
			return FeatureFailed, errors.Trace(err)
		}
		mask = self.excludeGroup(mask, name)
		mask |= bit
	}
	for _, name := range remove {
		bit, err := msg.FeatureBit(name)
		if err != nil {
			return FeatureFailed, errors.Trace(err)
		}
		mask &^= bit
	}

	if mask == cur.Mask {
		return FeatureUnchanged, nil
	}

	if err := self.client.SendMessage(&msg.SetFeature{Mask: mask}); err != nil {
		return FeatureFailed, errors.Annotate(err, "feature set")
	}
	if err := self.WriteEEPROM(); err != nil {
		return FeatureFailed, errors.Annotate(err, "feature persist")
	}
	if err := self.Reboot(); err != nil {
		// reboot ack often races the restart itself
		if !errors.IsTimeout(errors.Cause(err)) {
			return FeatureFailed, errors.Annotate(err, "feature reboot")
		}
		self.Log.Debugf("%s reboot ack lost, controller restarting", modName)
	}
	return FeatureChanged, nil
}

// excludeGroup clears the other members of any exclusion group that
// contains name.
func (self *FlightController) excludeGroup(mask uint32, name string) uint32 {
	for _, group := range self.groups {
		member := false
		for _, n := range group {
			if n == name {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		for _, n := range group {
			if n == name {
				continue
			}
			if bit, err := msg.FeatureBit(n); err == nil {
				mask &^= bit
			}
		}
	}
	return mask
}

// EnableRxMSP switches the receiver input to MSP commands, the mode
// SetRc needs to have effect.
func (self *FlightController) EnableRxMSP() (FeatureResult, error) {
	return self.UpdateFeatures([]string{"RX_MSP"}, nil)
}
