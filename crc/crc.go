// Package crc implements CRC8 DVB-S2, the checksum of MSPv2 frames.
package crc

const CRC_POLY_D5 byte = 0xd5

func CRC8_d5(crc, data byte) byte {
	crc ^= data
	var i byte = 0
	for ; i < 8; i++ {
		if (crc & 0x80) != 0 {
			crc <<= 1
			crc ^= CRC_POLY_D5
		} else {
			crc <<= 1
		}
	}
	return crc
}

func CRC8_d5_n(crc byte, bs []byte) byte {
	for _, b := range bs {
		crc = CRC8_d5(crc, b)
	}
	return crc
}
