package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/config"
	"github.com/snarg/speech-demo/internal/transcribe"
	"github.com/snarg/speech-demo/internal/usecase"
)

func main() {
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.Recognizer, "recognizer", "", "recognizer to use (overrides DEFAULT_RECOGNIZER)")
	sourceName := flag.String("source", "file", "audio source: "+strings.Join(audio.SourceNames(), " or "))
	filePath := flag.String("file", "", "default audio file for the file source (overrides DEFAULT_AUDIO_FILE)")
	useCaseKey := flag.String("use-case", "", "run one use case by menu key and exit")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := transcribe.New(cfg.DefaultRecognizer, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("recognizer", cfg.DefaultRecognizer).Msg("failed to create recognizer")
	}

	prompter := audio.NewPrompter(os.Stdin, os.Stdout)
	defaultPath := cfg.DefaultAudioFile
	if *filePath != "" {
		defaultPath = *filePath
	}
	src, err := audio.NewSource(*sourceName, audio.SourceOptions{
		SampleRate:      cfg.SampleRate,
		DefaultPath:     defaultPath,
		DefaultDuration: cfg.MicrophoneDuration,
		InputFormat:     cfg.MicrophoneFormat,
		Device:          cfg.MicrophoneDevice,
		Converter:       audio.NewConverter(cfg.FFmpegPath, audio.ExecRunner{}),
		Prompter:        prompter,
	})
	if err != nil {
		log.Fatal().Err(err).Str("source", *sourceName).Msg("failed to create audio source")
	}

	useCases := usecase.Available(os.Stdout, prompter)

	if *useCaseKey != "" {
		uc, ok := useCases[*useCaseKey]
		if !ok {
			log.Fatal().Str("use_case", *useCaseKey).Strs("valid", usecase.Keys(useCases)).Msg("unknown use case")
		}
		if err := uc.Run(ctx, src, provider); err != nil {
			log.Fatal().Err(err).Str("use_case", uc.Label()).Msg("use case failed")
		}
		return
	}

	if err := menu(ctx, os.Stdout, prompter, useCases, src, provider); err != nil {
		log.Fatal().Err(err).Msg("menu failed")
	}
}

// menu repeatedly offers the use cases until the user types q, input ends
// or ctx is cancelled. A failing use case is reported and the menu shown
// again.
func menu(ctx context.Context, out io.Writer, p *audio.Prompter, useCases map[string]usecase.UseCase, src audio.Source, provider transcribe.Provider) error {
	keys := usecase.Keys(useCases)
	for {
		if ctx.Err() != nil {
			return nil
		}

		usecase.PrintSectionTitle(out, fmt.Sprintf("Speech demo (recognizer: %s, source: %s)", provider.Name(), src.Label()))
		for _, k := range keys {
			fmt.Fprintf(out, "  %s) %s\n", k, useCases[k].Label())
		}
		fmt.Fprint(out, "  q) Quit\n\n")

		choice, err := p.Ask("Select a use case: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		choice = strings.ToLower(choice)
		if choice == "q" {
			return nil
		}

		uc, ok := useCases[choice]
		if !ok {
			fmt.Fprintf(out, "Unknown choice %q.\n", choice)
			continue
		}
		if err := uc.Run(ctx, src, provider); err != nil {
			fmt.Fprintf(out, "\nError: %v\n", err)
		}
	}
}
