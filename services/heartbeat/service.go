// Package heartbeat logs and publishes a periodic liveness beat carrying
// uptime and the board's HAL state.
package heartbeat

import (
	"context"
	"runtime"
	"time"

	"voicehal/bus"
	"voicehal/services/config"
	"voicehal/types"
	"voicehal/x/timex"

	"github.com/rs/zerolog"
)

const DefaultInterval = 2 * time.Second

var (
	TopicBeat = bus.T("system", "heartbeat")
	topicHAL  = bus.T("hal", "state")
)

// Beat is published on system/heartbeat.
type Beat struct {
	Seq        uint64 `json:"seq"`
	UptimeS    int64  `json:"uptime_s"`
	HALLevel   string `json:"hal_level,omitempty"`
	Goroutines int    `json:"goroutines"`
	TSms       int64  `json:"ts_ms"`
}

type Config struct {
	IntervalS int `json:"interval_s"`
}

type Service struct {
	Interval time.Duration
	Log      zerolog.Logger
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(config.Topic("heartbeat"))
	halSub := conn.Subscribe(topicHAL)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(halSub)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	start := time.Now()
	var (
		seq      uint64
		halLevel string
	)
	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("Heartbeat stopping")
			return
		case msg := <-halSub.Channel():
			if st, ok := msg.Payload.(types.HALState); ok {
				halLevel = st.Level
			}
		case msg := <-cfgSub.Channel():
			var c Config
			if err := config.Decode(msg.Payload, &c); err != nil || c.IntervalS <= 0 {
				s.Log.Warn().Err(err).Msg("Ignoring heartbeat config")
				continue
			}
			tick.Reset(time.Duration(c.IntervalS) * time.Second)
			s.Log.Info().Int("interval_s", c.IntervalS).Msg("Heartbeat interval set")
		case <-tick.C:
			seq++
			b := Beat{
				Seq:        seq,
				UptimeS:    int64(time.Since(start) / time.Second),
				HALLevel:   halLevel,
				Goroutines: runtime.NumGoroutine(),
				TSms:       timex.NowMs(),
			}
			conn.Publish(conn.NewMessage(TopicBeat, b, false))
			s.Log.Debug().
				Uint64("seq", b.Seq).
				Int64("uptime_s", b.UptimeS).
				Str("hal", b.HALLevel).
				Msg("Heartbeat")
		}
	}
}

// Start runs the heartbeat until ctx is done.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
