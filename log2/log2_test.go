package log2

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter(t *testing.T) {
	t.Parallel()

	b := bytes.NewBuffer(nil)
	l := NewWriter(b, LInfo)
	l.Debugf("should be hidden")
	l.Infof("hello %s", "info")
	l.Errorf("oops")
	s := b.String()
	assert.NotContains(t, s, "hidden")
	assert.Contains(t, s, "hello info")
	assert.Contains(t, s, "error: oops")
}

func TestNilSafe(t *testing.T) {
	t.Parallel()

	var l *Log
	l.SetLevel(LDebug)
	l.Debugf("nil receiver must not panic")
	assert.False(t, l.Enabled(LError))
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	b := bytes.NewBuffer(nil)
	l := NewWriter(b, LError)
	l.Infof("one")
	l.SetLevel(LDebug)
	l.Infof("two")
	lines := strings.TrimSpace(b.String())
	assert.NotContains(t, lines, "one")
	assert.Contains(t, lines, "two")
}
