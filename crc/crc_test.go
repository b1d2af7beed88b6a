package crc

import (
	"strings"
	"testing"
)

func makeCheck2(fun func(byte, byte) byte, tag string) func(t *testing.T, v1, v2, expect byte) {
	return func(t *testing.T, v1, v2, expect byte) {
		if fun(v1, v2) != expect {
			t.Errorf("%s(%02x, %02x) != %02x", tag, v1, v2, expect)
		}
	}
}

func makeCheckN(fun func(byte, []byte) byte, tag string) func(t *testing.T, v1 byte, vs []byte, expect byte) {
	return func(t *testing.T, v1 byte, vs []byte, expect byte) {
		if fun(v1, vs) != expect {
			t.Errorf("%s(%02x, "+strings.Repeat("%02x", len(vs))+") != %02x", tag, v1, vs, expect)
		}
	}
}

func TestSingle(t *testing.T) {
	check := makeCheck2(CRC8_d5, "CRC8_d5")
	check(t, 0, 0x00, 0x00)
	check(t, 0, 0x55, 0xe4)
	check(t, 0, 0xaa, 0x1d)
	check(t, 0, 0xff, 0xf9)
	check(t, 0x80, 0x00, 0xef)
	check(t, 0xe0, 0x78, 0x94)
	check(t, 0x03, 0x01, 0x7f)
}

func TestN(t *testing.T) {
	checkN := makeCheckN(CRC8_d5_n, "CRC8_d5_n")
	checkN(t, 0, []byte("123456789"), 0xbc)
	checkN(t, 0, []byte{0x00, 0x64, 0x00, 0x00}, 0x25)
	checkN(t, 0, []byte{0x00, 0x2a, 0x00, 0x02, 0x00, 0xbe, 0xef}, 0xce)
}
