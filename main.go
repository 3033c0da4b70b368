// Command voicehal is the device firmware entry point: it brings up the
// board compiled in by build tag, serves the board tools on the bus and
// runs the heartbeat.
package main

import (
	"context"
	"os"
	"time"

	"voicehal/bus"
	"voicehal/errcode"
	"voicehal/services/config"
	"voicehal/services/hal"
	"voicehal/services/hal/setups"
	"voicehal/services/heartbeat"
	"voicehal/services/tools"
	"voicehal/x/logx"

	"github.com/rs/zerolog"
)

type audioConfig struct {
	Volume int `json:"volume"`
}

type toolsConfig struct {
	TimeoutMS int `json:"timeout_ms"`
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	log := logx.New(os.Stdout, zerolog.InfoLevel)
	ctx := context.Background()

	b := bus.NewBus(16)
	halConn := b.NewConnection("hal")
	toolsConn := b.NewConnection("tools")
	sysConn := b.NewConnection("system")

	desc := setups.Get()
	if err := config.NewService(desc.Name, log).Publish(sysConn); err != nil {
		log.Warn().Err(err).Msg("Running without embedded config")
	}

	board, err := hal.New(ctx, desc, hal.DefaultPlatform(),
		hal.WithLogger(log), hal.WithConnection(halConn))
	if err != nil {
		log.Fatal().
			Err(err).
			Bool("descriptor", errcode.Fatal(err)).
			Msg("Board bring-up failed")
	}
	if err := board.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Board start failed")
	}
	applyAudioConfig(board, sysConn, log)

	opts := []tools.Option{tools.WithLogger(log)}
	var tc toolsConfig
	if readConfig(sysConn, "tools", &tc) && tc.TimeoutMS > 0 {
		opts = append(opts, tools.WithTimeout(time.Duration(tc.TimeoutMS)*time.Millisecond))
	}
	reg := tools.NewRegistry(opts...)
	if err := tools.RegisterBoardTools(reg, board); err != nil {
		log.Fatal().Err(err).Msg("Tool registration failed")
	}
	go reg.Serve(ctx, toolsConn)

	hb := &heartbeat.Service{Log: log}
	if err := hb.Start(ctx, sysConn); err != nil {
		log.Error().Err(err).Msg("Heartbeat start failed")
	}

	if c, ok := board.AudioCodec().Get(); ok {
		if err := c.EnableOutput(true); err != nil {
			log.Error().Err(err).Msg("Speaker enable failed")
		}
	}
	log.Info().
		Str("board", board.Name()).
		Int("tools", len(reg.List())).
		Msg("Firmware running")
	select {}
}

// readConfig fetches a retained config section, if one was published.
func readConfig(conn *bus.Connection, key string, v any) bool {
	sub := conn.Subscribe(config.Topic(key))
	defer conn.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		return config.Decode(m.Payload, v) == nil
	case <-time.After(10 * time.Millisecond):
		return false
	}
}

func applyAudioConfig(board *hal.Board, conn *bus.Connection, log zerolog.Logger) {
	var ac audioConfig
	if !readConfig(conn, "audio", &ac) {
		return
	}
	out, ok := board.Speaker().Get()
	if !ok {
		return
	}
	if err := out.SetVolume(ac.Volume); err != nil {
		log.Warn().Err(err).Msg("Configured volume rejected")
	}
}
