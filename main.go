package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mediapulse-hub/video-ingest/common"
	"github.com/mediapulse-hub/video-ingest/provider"
	"github.com/mediapulse-hub/video-ingest/service"
	"github.com/mediapulse-hub/video-ingest/store"
)

type app struct {
	cfg          common.Config
	store        *store.SQLiteStore
	orchestrator *service.Orchestrator
	resolver     *service.Resolver
	aggregator   *service.Aggregator
}

func newApp() (*app, error) {
	cfg := common.Load()

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	logger := log.Logger
	primary := provider.NewAPIProvider(st, cfg, logger)
	fallback := provider.NewYtDlpProvider(st, cfg, logger)

	return &app{
		cfg:          cfg,
		store:        st,
		orchestrator: service.NewOrchestrator(st, primary, fallback, logger),
		resolver:     service.NewResolver(primary, fallback, logger),
		aggregator:   service.NewAggregator(st, cfg, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// A local .env is optional; the environment itself wins.
	_ = godotenv.Load()

	var a *app

	root := &cobra.Command{
		Use:          "video-ingest",
		Short:        "Video metadata ingestion and aggregation engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	var channels []string
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and store recent videos for the given channels (all visible channels when omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.orchestrator.FetchChannelVideos(cmd.Context(), channels)
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				log.Info().Msg("No new videos found")
			} else {
				log.Info().Int("count", len(videos)).Msg("Videos fetched successfully")
			}
			return printJSON(videos)
		},
	}
	fetchCmd.Flags().StringSliceVar(&channels, "channels", nil, "Channel display names to fetch")

	resolveCmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve and store a single video from its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.resolver.ResolveVideoFromURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}

	var listOpts service.ListOptions
	var filters map[string]string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts *service.ListOptions
			if cmd.Flags().NFlag() > 0 {
				listOpts.Filters = filters
				opts = &listOpts
			}
			videos, err := a.aggregator.ListVideos(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}
	listCmd.Flags().StringToStringVar(&filters, "filter", nil, "Field filters, e.g. --filter title=news")
	listCmd.Flags().StringVar(&listOpts.SortField, "sort", "upload_date", "Sort field")
	listCmd.Flags().BoolVar(&listOpts.SortDesc, "desc", true, "Sort descending")
	listCmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "Page size")
	listCmd.Flags().IntVar(&listOpts.Offset, "offset", 0, "Page offset")

	shortsCmd := &cobra.Command{
		Use:   "shorts",
		Short: "List stored short-form videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.aggregator.ListShorts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	channelVideosCmd := &cobra.Command{
		Use:   "channel-videos <channel-id>",
		Short: "List a channel's videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.aggregator.ListChannelVideos(cmd.Context(), args[0], "", false)
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	channelShortsCmd := &cobra.Command{
		Use:   "channel-shorts <channel-id>",
		Short: "List a channel's short-form videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.aggregator.ListChannelShorts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	trendingCmd := &cobra.Command{
		Use:   "trending",
		Short: "List trending videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.aggregator.Trending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	suggestCmd := &cobra.Command{
		Use:   "suggest <video-id>",
		Short: "Suggest videos to watch after the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := a.aggregator.SuggestNext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	hitCmd := &cobra.Command{
		Use:   "hit <video-id>",
		Short: "Record a watch event for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hit, err := a.aggregator.RecordHit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(hit)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <video-id>",
		Short: "Soft-delete a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.aggregator.DeleteVideo(cmd.Context(), args[0])
		},
	}

	detailCmd := &cobra.Command{
		Use:   "detail <video-id>",
		Short: "Show one video with its channel details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.aggregator.VideoDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}

	root.AddCommand(fetchCmd, resolveCmd, listCmd, shortsCmd, channelVideosCmd,
		channelShortsCmd, trendingCmd, suggestCmd, hitCmd, deleteCmd, detailCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
