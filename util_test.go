package beaconadv

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestLogHex(t *testing.T) {
	t.Parallel()

	attr := logHex("data", []byte{0xAA, 0xFE, 0x00})
	assert.Equal(t, "data", attr.Key)
	assert.Equal(t, "AAFE00", attr.Value.String())
}

func TestDeferWrapKeepsMessage(t *testing.T) {
	t.Parallel()

	err := func() (err error) {
		defer deferWrap(&err)
		return errors.New("boom")
	}()
	assert.EqualError(t, err, "boom")
}
