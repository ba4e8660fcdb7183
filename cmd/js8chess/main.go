// JS8Chess: UCI chess bridge over the JS8Call radio API.
//
// The engine reads UCI commands on stdin and writes responses on stdout;
// moves are exchanged with the configured remote callsign over JS8Call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	appcfg "js8chess/internal/config"
	"js8chess/internal/js8"
	"js8chess/internal/mux"
	"js8chess/internal/obslog"
	"js8chess/internal/record"
	"js8chess/internal/session"
	"js8chess/internal/uci"
	"js8chess/internal/wire"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default <data dir>/config.yaml)")
		proposeArg = flag.String("propose", "", "transmit a NEW game proposal as W or B on startup")
		logLevel   = flag.String("loglevel", "", "log level override: debug, info, warn, error")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		path = filepath.Join(appcfg.DefaultDir(), "config.yaml")
	}
	cfg, err := appcfg.Load(path)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	if err := obslog.Init(level, filepath.Join(cfg.DataDir, "js8chess.log")); err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	defer obslog.L().Sync()

	obslog.L().Info("js8chess_starting",
		zap.String("local", cfg.LocalCallsign),
		zap.String("remote", cfg.RemoteCallsign),
		zap.String("js8call", fmt.Sprintf("%s:%d", cfg.JS8Host, cfg.JS8Port)),
	)

	store, err := record.NewStore(cfg.DataDir, obslog.L().Named("record"))
	if err != nil {
		obslog.L().Fatal("record store init failed", zap.Error(err))
	}

	sess := session.New(session.Config{
		LocalCall:  cfg.LocalCallsign,
		RemoteCall: cfg.RemoteCallsign,
		AckWait:    cfg.AckWait(),
		MoveWait:   cfg.MoveResponseWait(),
		MaxRetries: cfg.MaxRetries,
		AutoAccept: cfg.AutoAccept,
	}, store, obslog.L().Named("session"))

	writer := uci.NewWriter(os.Stdout)

	// Construction order: the bridge posts into the loop, the loop sends
	// through the bridge. The loop variable is captured before Connect runs.
	var loop *mux.Loop
	bridge := js8.New(cfg.JS8Host, cfg.JS8Port,
		func(from, to, text string) { loop.PostRemoteText(text) },
		func(err error) { loop.Fail(err) },
		obslog.L().Named("js8"),
	)
	loop = mux.New(mux.Config{
		LocalCall:  cfg.LocalCallsign,
		RemoteCall: cfg.RemoteCallsign,
		MaxRetries: cfg.MaxRetries,
		Radio:      func(text string) error { return bridge.Send(cfg.RemoteCallsign, text) },
		Local:      writer.Line,
	}, sess, obslog.L().Named("mux"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := bridge.Connect(ctx); err != nil {
		obslog.L().Fatal("js8call connect failed", zap.Error(err))
	}
	defer bridge.Close()

	// Resume an in-flight game left by a previous run, if any.
	if gameID, ok := store.FindLatest(cfg.RemoteCallsign); ok {
		loop.PostEvent(session.LocalResume{GameID: gameID})
	}

	if side := strings.ToUpper(strings.TrimSpace(*proposeArg)); side != "" {
		if side != "W" && side != "B" {
			obslog.L().Fatal("invalid -propose value", zap.String("value", *proposeArg))
		}
		loop.PostEvent(session.LocalPropose{Side: wire.Side(side)})
	}

	reader := uci.NewReader(os.Stdin, func(cmd uci.Command) {
		switch c := cmd.(type) {
		case uci.Handshake:
			writer.Identify()
		case uci.IsReady:
			writer.Ready()
		case uci.Quit:
			cancel()
		case uci.NewGame:
			loop.PostEvent(session.LocalReset{})
		case uci.Position:
			loop.PostEvent(session.LocalPosition{Moves: c.Moves})
		case uci.Go:
			loop.PostEvent(session.LocalGo{})
		case uci.Stop:
			loop.PostEvent(session.LocalStop{})
		case uci.Propose:
			loop.PostEvent(session.LocalPropose{Side: wire.Side(c.Side)})
		case uci.Resync:
			loop.PostEvent(session.LocalResync{})
		}
	})
	go func() {
		if err := reader.Run(); err != nil {
			obslog.L().Warn("uci input error", zap.Error(err))
		}
		// GUI closed stdin: shut down.
		cancel()
	}()

	if err := loop.Run(ctx); err != nil {
		obslog.L().Error("fatal fault", zap.Error(err))
		bridge.Close()
		obslog.L().Sync()
		os.Exit(1)
	}
	obslog.L().Info("js8chess_stopped")
}
