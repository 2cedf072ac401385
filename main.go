package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ldayton/waveview/internal/audio"
	"github.com/ldayton/waveview/internal/frame"
	"github.com/ldayton/waveview/internal/media"
	"github.com/ldayton/waveview/internal/session"
	"github.com/ldayton/waveview/internal/ui"
	"github.com/ldayton/waveview/internal/viewport"
	"github.com/ldayton/waveview/internal/wave"
)

const defaultZoom = 200 // pixels per second

func main() {
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: waveview [flags] <audio file>\nsupported formats: %s\n", media.SupportedExtsList())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	log := wave.NopLogger()
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if !media.IsSupportedExt(filepath.Ext(path)) {
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q (supported: %s)\n",
			filepath.Ext(path), media.SupportedExtsList())
		os.Exit(1)
	}

	machine := session.NewMachine(log)
	machine.Set(session.Loading)

	// Playback and rendering each get their own decoder so they never fight
	// over one seek position.
	renderDec, err := audio.Open(path)
	if err != nil {
		fail(machine, log, err)
	}
	playDec, err := audio.Open(path)
	if err != nil {
		renderDec.Close()
		fail(machine, log, err)
	}

	src := audio.NewSource(renderDec, log)
	pool := wave.NewPool(0)
	defer pool.Close()

	comp := wave.NewCompositor(src, pool, wave.Options{Logger: log})
	defer comp.Close()

	vp := viewport.New(800, defaultZoom)
	interp := viewport.NewInterpolator(log)

	transport, err := audio.NewTransport(playDec, interp.UpdateRealPosition)
	if err != nil {
		renderDec.Close()
		playDec.Close()
		fail(machine, log, err)
	}
	defer transport.Close()
	defer src.Close()

	machine.Set(session.Ready)
	log.Info("audio loaded", "path", path,
		"duration", src.Duration(), "rate", src.SampleRate())

	coord := frame.NewCoordinator(machine, vp, interp, comp, log)
	meta := audio.ReadMetadata(path)

	model := ui.New(coord, transport, machine, vp, interp, meta)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fail(machine *session.Machine, log *slog.Logger, err error) {
	machine.Set(session.Errored)
	log.Error("loading audio", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
