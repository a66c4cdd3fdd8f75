package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetVerbosityGatesMessages(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbosity(int(Info))

	SetVerbosity(int(Info))
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	SetVerbosity(int(Debug))
	Debugf("visible %d", 3)
	Tracef("too deep")
	assert.Contains(t, buf.String(), "visible 3")
	assert.NotContains(t, buf.String(), "too deep")
}

func TestSetVerbosityClamps(t *testing.T) {
	defer SetVerbosity(int(Info))

	SetVerbosity(-4)
	assert.Equal(t, Error, Verbosity())

	SetVerbosity(42)
	assert.Equal(t, Trace, Verbosity())
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbosity(int(Info))

	WithFields(logrus.Fields{"strike": 105.0}).Infof("quote skipped")
	assert.Contains(t, buf.String(), "strike=105")
	assert.Contains(t, buf.String(), "quote skipped")
}
