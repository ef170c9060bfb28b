// Package main provides the entry point for the mediahub server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/mediahub/internal/command"
	"github.com/dgnsrekt/mediahub/internal/config"
	"github.com/dgnsrekt/mediahub/internal/library"
	"github.com/dgnsrekt/mediahub/internal/player"
	"github.com/dgnsrekt/mediahub/internal/remote"
	"github.com/dgnsrekt/mediahub/internal/server"
	"github.com/dgnsrekt/mediahub/internal/tts"
	"github.com/dgnsrekt/mediahub/internal/ttscache"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	listenAddr string
	musicDir   string

	rootCmd = &cobra.Command{
		Use:   "mediahub",
		Short: "Local media hub with TTS announcements and remote streaming",
		Long: paragraph(fmt.Sprintf(
			"\nServe your music library, %s and stream remote media, all driven over HTTP.",
			keyword("speak announcements"),
		)),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		RunE:             serve,
	}
)

func serve(*cobra.Command, []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if musicDir != "" {
		cfg.Audio.MusicDir = config.ExpandPath(musicDir)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := library.NewResolver(cfg.Audio.MusicDir, cfg.Audio.PlaylistsDir)
	if err := resolver.Watch(); err != nil {
		log.Warn("Library watching disabled", "err", err)
	}
	defer resolver.Close() //nolint:errcheck

	cache, err := ttscache.New(cfg.TTS.CacheDir, cfg.TTS.MaxCacheFiles)
	if err != nil {
		return fmt.Errorf("unable to open speech cache: %w", err)
	}
	speaker := tts.NewSpeaker(cache, tts.NewChain(tts.DefaultBackends(), tts.DefaultMaxSentences), cfg.TTS.DefaultVoice)

	streamCache, err := remote.NewCache(cfg.Audio.StreamCacheDir)
	if err != nil {
		return fmt.Errorf("unable to open stream cache: %w", err)
	}

	controller := player.NewController(ctx, player.Config{
		Resolver: resolver,
		Lister:   remote.NewLister(),
	})
	controller.SetVolume(cfg.Audio.DefaultVolume)

	srv := server.New(server.Config{
		Speaker:         speaker,
		Player:          controller,
		Commands:        command.NewDispatcher(controller),
		CacheStats:      cache.Stats,
		StreamCacheInfo: streamCache.Info,
	})

	addr := cfg.Server.Addr()
	if listenAddr != "" {
		addr = listenAddr
	}

	defer func() {
		_ = controller.Stop()
		speaker.Stop()
	}()

	log.Info("Starting mediahub",
		"music_dir", cfg.Audio.MusicDir,
		"playlists_dir", cfg.Audio.PlaylistsDir,
		"tts_cache", cfg.TTS.CacheDir)
	return srv.ListenAndServe(ctx, addr, cfg.Server.Timeout)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "listen address (overrides config)")
	rootCmd.Flags().StringVarP(&musicDir, "music-dir", "m", "", "music library directory (overrides config)")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("audio.default_volume", 50)
	viper.SetDefault("tts.max_cache_files", 1000)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "mediahub")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "mediahub")}, dirs...)
	}

	if c := os.Getenv("MEDIAHUB_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("mediahub")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("mediahub")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "mediahub.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
