// Package config publishes the embedded runtime settings for a board as
// retained bus messages, one per top-level key (config/<key>).
package config

import (
	"context"
	"encoding/json"
	"errors"

	"voicehal/bus"

	"github.com/rs/zerolog"
)

const configPrefix = "config"

// Topic addresses one configuration section.
func Topic(key string) bus.Topic { return bus.T(configPrefix, key) }

// EmbeddedConfigLookup resolves the raw JSON for a board name. Tests
// replace it.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	if !ok {
		b, ok = embeddedConfigs[defaultBoard]
	}
	return b, ok
}

type Service struct {
	Board string
	Log   zerolog.Logger
}

func NewService(board string, log zerolog.Logger) *Service {
	return &Service{Board: board, Log: log}
}

// Publish decodes the board config and publishes each section retained.
func (s *Service) Publish(conn *bus.Connection) error {
	raw, ok := EmbeddedConfigLookup(s.Board)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for board: " + s.Board)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
	s.Log.Info().
		Str("board", s.Board).
		Int("sections", len(m)).
		Msg("Config published")
	return nil
}

// Start publishes in the background; failures are logged.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Publish(conn); err != nil {
			s.Log.Error().Err(err).Msg("Config publish failed")
		}
	}()
}

// Decode unmarshals a config payload into v. Payloads are JSON bytes when
// published by this package, but any marshalable value is accepted.
func Decode(payload any, v any) error {
	switch p := payload.(type) {
	case json.RawMessage:
		return json.Unmarshal(p, v)
	case []byte:
		return json.Unmarshal(p, v)
	case nil:
		return errors.New("empty config payload")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
