package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsEmptyBuffer(t *testing.T) {
	buf := Get()
	assert.Equal(t, 0, buf.Len())
	buf.WriteString("hello")
	Put(buf)
}

func TestPutResetsForReuse(t *testing.T) {
	buf := Get()
	buf.WriteString("hello")
	Put(buf)

	buf2 := Get()
	assert.Equal(t, 0, buf2.Len())
}
