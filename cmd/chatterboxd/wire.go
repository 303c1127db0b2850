package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/chatterbox-serve/internal/config"
	"github.com/example/chatterbox-serve/internal/relay"
	"github.com/example/chatterbox-serve/internal/storage"
	"github.com/example/chatterbox-serve/internal/tts"
	"github.com/example/chatterbox-serve/internal/voice"
)

func buildResolver(cfg config.Config) *voice.Resolver {
	var fetcher voice.Fetcher
	if cfg.Voices.MappingURL != "" {
		fetcher = voice.HTTPFetcher{URL: cfg.Voices.MappingURL}
	} else {
		fetcher = voice.FileFetcher{Path: cfg.Voices.MappingPath}
	}
	opts := []voice.Option{
		voice.WithTTL(time.Duration(cfg.Voices.CacheTTL) * time.Second),
	}
	if cfg.Voices.BaseDir != "" {
		opts = append(opts, voice.WithBaseDir(cfg.Voices.BaseDir))
	}
	return voice.NewResolver(fetcher, opts...)
}

func buildStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		PresignExpiry:   time.Duration(cfg.Storage.PresignExpiry) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}
	return store, nil
}

func buildService(ctx context.Context, cfg config.Config, resolver *voice.Resolver) (*tts.Service, error) {
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend URL is required (--backend-url or CHATTERBOX_BACKEND_URL)")
	}

	model, err := tts.NewRemoteModel(cfg.Backend.URL, tts.WithAPIKey(cfg.Backend.APIKey))
	if err != nil {
		return nil, fmt.Errorf("initialize generation backend: %w", err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := tts.NewDispatcher(store, cfg.Storage.OutputDir, slog.Default())

	return tts.NewService(resolver, model, dispatcher, tts.ServiceConfig{
		MaxTextLen:   cfg.Server.MaxTextLen,
		MaxChunkLen:  cfg.Server.MaxChunkLen,
		Workers:      cfg.Server.Workers,
		ChunkGap:     time.Duration(cfg.Audio.ChunkGapMS) * time.Millisecond,
		WatermarkKey: cfg.Audio.WatermarkKey,
		TargetLUFS:   cfg.Audio.TargetLUFS,
	}, slog.Default()), nil
}

func buildJobs(cfg config.Config) (*relay.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, nil
	}

	var opts []relay.ClientOption
	if cfg.Backend.APIKey != "" {
		opts = append(opts, relay.WithClientAPIKey(cfg.Backend.APIKey))
	}
	client, err := relay.NewClient(cfg.Backend.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize job client: %w", err)
	}
	return client, nil
}
