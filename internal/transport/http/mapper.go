package http

import (
	"github.com/vovakirdan/dialogline/internal/monitor"
	"github.com/vovakirdan/dialogline/internal/proto"
	"github.com/vovakirdan/dialogline/internal/store"
)

func exchangeToProto(ex *store.Exchange) proto.ExchangeData {
	return proto.ExchangeData{
		ID:            ex.ID,
		RequestID:     ex.RequestID,
		EventID:       ex.EventID,
		Source:        ex.Source,
		ChatID:        ex.ChatID,
		SenderID:      ex.SenderID,
		InboundText:   ex.InboundText,
		ForwardedText: ex.ForwardedText,
		ReplyText:     ex.ReplyText,
		ReplyKind:     ex.ReplyKind,
		LookupError:   ex.LookupError,
		Delivered:     ex.Delivered,
		TS:            ex.CreatedAt.Unix(),
	}
}

func outboundFromEvent(ev *monitor.Event) proto.Outbound {
	switch ev.Kind {
	case monitor.EventExchange:
		if ev.Exchange == nil {
			break
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventExchange,
			Data:  exchangeToProto(ev.Exchange),
		}
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: "unknown_event", Msg: "unknown event"},
	}
}
