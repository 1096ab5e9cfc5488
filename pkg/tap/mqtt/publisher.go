package mqtt

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/link"
)

// EventsTopic is the topic suffix of link events.
const EventsTopic = "events"

// EventMessage is the JSON form of link.Event.
type EventMessage struct {
	Device string `json:"device"`
	Kind   string `json:"kind"`
	Data   string `json:"data,omitempty"`
	Code   string `json:"code,omitempty"`
	Err    string `json:"error,omitempty"`
}

// NewEventMessage converts a link.Event. Data is hex encoded.
func NewEventMessage(device string, e *link.Event) *EventMessage {
	msg := &EventMessage{
		Device: device,
		Kind:   e.Kind.String(),
		Data:   hex.EncodeToString(e.Data),
	}
	if e.Kind == link.EventFrameRejected {
		msg.Code = link.CodeName(e.Code)
	}
	if e.Err != nil {
		msg.Err = e.Err.Error()
	}
	return msg
}

// DeviceFromTopic extracts the device id from an events topic.
func DeviceFromTopic(topic string) (string, bool) {
	items := strings.Split(topic, "/")
	if len(items) == 2 && items[1] == EventsTopic {
		return items[0], true
	}
	return "", false
}

// Publisher publishes link events to <prefix><device>/events.
type Publisher struct {
	Device string

	pub func(topic string, payload []byte)
}

// NewPublisher creates a Publisher on q.
func NewPublisher(q *Queue, device string) *Publisher {
	return &Publisher{
		Device: device,
		pub: func(topic string, payload []byte) {
			q.Pub(topic, payload)
		},
	}
}

// Topic returns the topic relative to the queue prefix.
func (p *Publisher) Topic() string {
	return p.Device + "/" + EventsTopic
}

// Observe implements link.Observer. Events are marshaled before returning
// as the data is only valid during the call.
func (p *Publisher) Observe(e *link.Event) {
	payload, err := json.Marshal(NewEventMessage(p.Device, e))
	if err != nil {
		glog.Errorf("marshal event: %v", err)
		return
	}
	p.pub(p.Topic(), payload)
}
