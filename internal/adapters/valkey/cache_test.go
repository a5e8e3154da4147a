package valkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_KeyPrefix(t *testing.T) {
	c := &Cache{prefix: "nearme:"}
	assert.Equal(t, "nearme:places:search:coffee", c.key("places:search:coffee"))

	bare := &Cache{}
	assert.Equal(t, "places:search:coffee", bare.key("places:search:coffee"))
}
