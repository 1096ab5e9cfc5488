package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcplink/pkg/link"
)

func TestPublisherObserve(t *testing.T) {
	type published struct {
		topic string
		msg   EventMessage
	}
	var out []published
	p := &Publisher{Device: "dev1", pub: func(topic string, payload []byte) {
		var msg EventMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		out = append(out, published{topic, msg})
	}}

	data := []byte{0x41, 0x42, 0x87}
	p.Observe(&link.Event{Kind: link.EventFrameReceived, Data: data})
	// the buffer is reused after Observe returns.
	data[0] = 0
	p.Observe(&link.Event{
		Kind: link.EventFrameRejected,
		Data: []byte{0x41},
		Code: link.CodeDispatchFailed,
		Err:  errors.New("boom"),
	})

	require.Len(t, out, 2)
	require.Equal(t, "dev1/events", out[0].topic)
	require.Equal(t, EventMessage{Device: "dev1", Kind: link.EventFrameReceived.String(), Data: "414287"}, out[0].msg)
	require.Equal(t, link.CodeName(link.CodeDispatchFailed), out[1].msg.Code)
	require.Equal(t, "boom", out[1].msg.Err)

	device, ok := DeviceFromTopic(out[0].topic)
	require.True(t, ok)
	require.Equal(t, "dev1", device)
	_, ok = DeviceFromTopic("dev1/meta")
	require.False(t, ok)
}
