package esmutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKwToW(t *testing.T) {
	assert.Equal(t, 1234.0, KwToW(1.234))
	assert.Equal(t, 0.0, KwToW(-0.5))
	assert.Equal(t, 1.234, WToKw(1234))
}

func TestKwhToWh(t *testing.T) {
	assert.Equal(t, 12345678.0, KwhToWh(12345.678))
	assert.Equal(t, 0.0, KwhToWh(-1))
}

func TestNetGridW(t *testing.T) {
	assert.Equal(t, 800.0, NetGridW(0.8, 0))
	assert.Equal(t, -300.0, NetGridW(0, 0.3))
}

func TestWhToKwh(t *testing.T) {
	assert.Equal(t, 12.345, WhToKwh(12345))
	assert.Equal(t, 0.0, WhToKwh(0))
}
