package tools

import (
	"context"
	"encoding/json"

	"voicehal/bus"
)

// Topics served on the bus.
var (
	TopicCall = bus.T("tools", "call", "+") // tools/call/<name>
	TopicList = bus.T("tools", "list")
)

// CallTopic addresses one tool.
func CallTopic(name string) bus.Topic { return bus.T("tools", "call", name) }

// Serve answers tool requests on conn until ctx is done. Each call runs in
// its own goroutine so a slow tool does not hold up the others.
func (r *Registry) Serve(ctx context.Context, conn *bus.Connection) {
	calls := conn.Subscribe(TopicCall)
	list := conn.Subscribe(TopicList)
	defer conn.Unsubscribe(calls)
	defer conn.Unsubscribe(list)

	r.log.Info().Msg("Tool bridge serving")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-list.Channel():
			if !ok {
				return
			}
			conn.Reply(msg, r.List(), false)
		case msg, ok := <-calls.Channel():
			if !ok {
				return
			}
			if !msg.CanReply() {
				continue
			}
			go func(msg *bus.Message) {
				name := msg.Topic.At(2)
				args, err := rawArgs(msg.Payload)
				if err != nil {
					conn.Reply(msg, errResult("invalid arguments: "+err.Error()), false)
					return
				}
				conn.Reply(msg, r.Invoke(ctx, name, args), false)
			}(msg)
		}
	}
}

// rawArgs accepts JSON bytes, a JSON string or any marshalable value.
func rawArgs(p any) (json.RawMessage, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	case string:
		return json.RawMessage(v), nil
	}
	return json.Marshal(p)
}
