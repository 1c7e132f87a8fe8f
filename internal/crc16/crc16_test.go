package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKermit_S2(t *testing.T) {
	assert.Equal(t, uint16(0x8921), Kermit([]byte("123456789")))
}
