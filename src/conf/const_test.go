package conf

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFullVersion(t *testing.T) {
	t.Parallel()
	version := FullVersion()
	assert.Equal(t, fmt.Sprintf("%v Copyright (C) %v", LOXVERSION, time.Now().Year()), version)
}

func TestCopyright(t *testing.T) {
	t.Parallel()
	copyright := Copyright()
	assert.Equal(t, fmt.Sprintf("Copyright (C) %v", time.Now().Year()), copyright)
}

func TestLimits(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FRAMESMAX*UINT8COUNT, STACKMAX)
	assert.Equal(t, 65535, MAXJUMP)
	assert.LessOrEqual(t, MAXARGS, MAXLOCALS)
}
