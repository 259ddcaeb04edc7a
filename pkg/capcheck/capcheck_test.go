package capcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestHasEffective_BitSet(t *testing.T) {
	var data [2]unix.CapUserData
	data[0].Effective = 1 << capNetAdmin

	assert.True(t, hasEffective(data, capNetAdmin))
}

func TestHasEffective_BitClear(t *testing.T) {
	var data [2]unix.CapUserData
	data[0].Effective = 0

	assert.False(t, hasEffective(data, capNetAdmin))
}

func TestHasEffective_SecondWord(t *testing.T) {
	const capHigh = 34 // arbitrary capability living in the second 32-bit word
	var data [2]unix.CapUserData
	data[1].Effective = 1 << uint(capHigh%32)

	assert.True(t, hasEffective(data, capHigh))
}
