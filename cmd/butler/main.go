// Command butler answers natural-language questions over personal
// multi-domain data.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeffreyouni/life-butler/internal/profile"
	"github.com/jeffreyouni/life-butler/plugin/ai"
	"github.com/jeffreyouni/life-butler/plugin/ai/rag"
	"github.com/jeffreyouni/life-butler/plugin/ai/router"
	"github.com/jeffreyouni/life-butler/server/aggregator"
	"github.com/jeffreyouni/life-butler/server/engine"
	"github.com/jeffreyouni/life-butler/server/processor"
	"github.com/jeffreyouni/life-butler/server/queryengine"
	"github.com/jeffreyouni/life-butler/store"
	"github.com/jeffreyouni/life-butler/store/db"
)

const version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "butler",
		Short:   "Personal life data assistant",
		Version: version,
	}

	rootCmd.PersistentFlags().String("mode", "dev", "mode of the butler (prod/dev)")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	viper.SetDefault("version", version)

	rootCmd.AddCommand(newAskCommand(), newRebuildCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question over your data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.store.Close()

			query := args[0]
			result := app.engine.RouteAndProcess(cmd.Context(), query)
			fmt.Println(app.engine.ResponseText(result))
			return nil
		},
	}
}

func newRebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-embeddings",
		Short: "Re-embed every record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.store.Close()

			return app.pipeline.Rebuild(cmd.Context(), func(current, total int) {
				fmt.Printf("\rembedding %d/%d", current, total)
				if current == total {
					fmt.Println()
				}
			})
		},
	}
}

type app struct {
	store    *store.Store
	pipeline *rag.Pipeline
	engine   *engine.Engine
}

func bootstrap() (*app, error) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	p, err := profile.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver)

	aiConfig := ai.NewConfigFromProfile(p)
	var embedder ai.Embedder
	var chat ai.ChatCompleter
	if aiConfig.Enabled {
		if embedder, err = ai.NewEmbedder(&aiConfig.Embedding); err != nil {
			return nil, err
		}
		if chat, err = ai.NewChatCompleter(&aiConfig.LLM); err != nil {
			return nil, err
		}
	}

	pipeline := rag.New(st, st, embedder, chat, &aiConfig.Embedding, rag.DefaultConfig())
	agg := aggregator.New(st)
	routerService := router.NewService(router.ServiceConfig{
		Chat: chat,
		Data: &engine.AvailabilityChecker{Records: st},
	})
	proc := processor.New(agg, pipeline)
	eng := engine.New(queryengine.NewKeywordPlanner(), routerService, proc)

	return &app{store: st, pipeline: pipeline, engine: eng}, nil
}
