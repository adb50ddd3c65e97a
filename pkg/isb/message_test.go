package isb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_Size(t *testing.T) {
	m := &Message{Body: Body{Payload: []byte("12345678")}}
	assert.Equal(t, 8, m.Size())
}

func TestMessageInfo(t *testing.T) {
	now := time.Now()
	m := Message{Header: Header{MessageInfo: MessageInfo{EventTime: now}, Keys: []string{"k"}}}
	assert.Equal(t, now, m.EventTime)
	assert.Equal(t, []string{"k"}, m.Keys)
}
