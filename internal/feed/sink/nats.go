// Package sink implements optional out-of-process fan-out for normalized
// feed/quoting events, adapted from the teacher's internal/jetstream
// publisher onto the core's MarketDataEvent/OrderStatusReport shapes.
package sink

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/BullionBear/sequex/internal/feed/core"
)

// NATSEventSink republishes normalized events onto a NATS subject, giving
// external subscribers the same sequence of events the in-process
// EventSource observers see, header fields only (see
// PublishMarketDataEvent). JSON-encoded: the teacher's pkg/protobuf schemas cover a
// different message shape and can't be regenerated without the protoc
// toolchain, so this sink uses encoding/json instead of protobuf.
type NATSEventSink struct {
	js      nats.JetStreamContext
	subject string
}

// NewNATSEventSink wires a sink against an already-connected JetStream
// context, the same construction shape as jetstream.NewPublisher.
func NewNATSEventSink(js nats.JetStreamContext, subject string) *NATSEventSink {
	return &NATSEventSink{js: js, subject: subject}
}

// marketDataEnvelope is the wire shape for a MarketDataEvent.
type marketDataEnvelope struct {
	Sequence     uint64 `json:"sequence"`
	Timestamp    uint64 `json:"timestamp"`
	Kind         uint8  `json:"kind"`
	InstrumentID uint32 `json:"instrumentId"`
	Exchange     string `json:"exchange"`
	TopicID      uint8  `json:"topicId"`
	PrevSequence uint64 `json:"prevSequence"`
	IsLastChunk  bool   `json:"isLastChunk"`
}

// PublishMarketDataEvent republishes ev's header fields (the chunked
// price-level payload is reconstructable by subscribers from the live
// in-process feed; the sink exists for sequence/ordering observability,
// not as the primary transport).
func (s *NATSEventSink) PublishMarketDataEvent(ev core.MarketDataEvent) error {
	payload, err := json.Marshal(marketDataEnvelope{
		Sequence:     ev.Sequence,
		Timestamp:    ev.Timestamp,
		Kind:         uint8(ev.Kind),
		InstrumentID: uint32(ev.InstrumentID),
		Exchange:     ev.Exchange.String(),
		TopicID:      uint8(ev.TopicID),
		PrevSequence: ev.PrevSequence,
		IsLastChunk:  ev.IsLastChunk,
	})
	if err != nil {
		return fmt.Errorf("sink: marshal market data event: %w", err)
	}
	return s.publish(payload)
}

// orderStatusEnvelope is the wire shape for an OrderStatusReport.
type orderStatusEnvelope struct {
	ClientOrderID   uint64 `json:"clientOrderId"`
	ExchangeOrderID string `json:"exchangeOrderId"`
	InstrumentID    uint32 `json:"instrumentId"`
	Status          uint8  `json:"status"`
	Price           int64  `json:"price"`
	Quantity        int64  `json:"quantity"`
	LeavesQuantity  int64  `json:"leavesQuantity"`
	Timestamp       uint64 `json:"timestamp"`
}

// PublishOrderStatus republishes an execution report.
func (s *NATSEventSink) PublishOrderStatus(r core.OrderStatusReport) error {
	payload, err := json.Marshal(orderStatusEnvelope{
		ClientOrderID:   r.ClientOrderID,
		ExchangeOrderID: r.ExchangeOrderID,
		InstrumentID:    uint32(r.InstrumentID),
		Status:          uint8(r.Status),
		Price:           int64(r.Price),
		Quantity:        int64(r.Quantity),
		LeavesQuantity:  int64(r.LeavesQuantity),
		Timestamp:       r.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("sink: marshal order status: %w", err)
	}
	return s.publish(payload)
}

func (s *NATSEventSink) publish(data []byte) error {
	_, err := s.js.Publish(s.subject, data)
	return err
}
