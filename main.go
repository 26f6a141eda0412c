package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/feature/align"
	"github.com/MONDERASDOR/SaverTab/feature/nametags"
	"github.com/MONDERASDOR/SaverTab/feature/tablist"
	"github.com/MONDERASDOR/SaverTab/placeholder"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/scheduler"
)

func main() {
	var (
		addr       string
		configPath string
		logDir     string
		debug      bool
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:25565", "listen address") // Localhost only by default
	flag.StringVar(&configPath, "config", "config.yml", "configuration file")
	flag.StringVar(&logDir, "logs", "logs", "directory for error logs")
	flag.BoolVar(&debug, "debug", false, "verbose/debug logging")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	errs := errlog.New(logDir)
	errs.SetDebug(debug)
	sched := scheduler.New(errs)

	roster := player.NewRoster()
	ph := placeholder.NewManager()
	ph.RegisterDefaults(roster)
	ph.SetCustom(cfg.CustomPlaceholders)

	fctx := &feature.Context{
		Roster:       roster,
		Config:       config.NewStore(cfg),
		Placeholders: ph,
		Scheduler:    sched,
		Errors:       errs,
		Sender:       feature.ConnSender{Errors: errs},
	}
	features := feature.NewManager(fctx)
	registerFeatures(features, cfg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to bind: %v", err)
	}
	log.Printf("SaverTab listening on %s, refreshing placeholders every %v", addr, features.Interval())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go features.Run(ctx)
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s := &server{features: features, configPath: configPath}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go s.handleConn(conn)
	}

	features.UnloadAll()
	sched.Stop()
	log.Printf("Feature usage:\n%s", sched.Report())
}

// registerFeatures enables the features cfg asks for. Features already
// registered under the same tag are replaced.
func registerFeatures(m *feature.Manager, cfg *config.Config) {
	ctx := m.Context()
	if cfg.AlignedSuffix {
		m.Register(align.New(ctx))
	} else if m.IsEnabled(feature.AlignedSuffix) {
		m.Unregister(feature.AlignedSuffix)
	}
	if cfg.EnableNametags {
		if !m.IsEnabled(feature.NameTags) {
			m.Register(nametags.New())
		}
	} else if m.IsEnabled(feature.NameTags) {
		m.Unregister(feature.NameTags)
	}
	if !m.IsEnabled(feature.TablistNames) {
		m.Register(tablist.New(ctx))
	}
}
