// Command ember fetches and loads model snapshots from the hub, printing
// loading progress as it goes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ember-ml/ember/internal/hub"
	"github.com/ember-ml/ember/internal/safetensors"
	"github.com/ember-ml/ember/internal/weights"
	"github.com/ember-ml/ember/load"
	"github.com/ember-ml/ember/progress"
)

const version = "v0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:           "ember",
		Short:         "Fetch and load model snapshots",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(pullCmd(), loadCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func pullCmd() *cobra.Command {
	var token string
	var verify bool
	cmd := &cobra.Command{
		Use:   "pull <org/name[@revision]>",
		Short: "Download a model snapshot into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []hub.Option
			if token != "" {
				opts = append(opts, hub.WithToken(token))
			}
			client := hub.NewClient(opts...)

			lastFile := ""
			dir, err := client.Fetch(cmd.Context(), args[0], func(file string, index, total int, fraction float64) {
				if file != lastFile {
					if lastFile != "" {
						fmt.Println()
					}
					lastFile = file
				}
				fmt.Printf("\r%s (%d/%d) %5.1f%%", file, index, total, fraction*100)
			})
			if lastFile != "" {
				fmt.Println()
			}
			if err != nil {
				return err
			}
			fmt.Println("snapshot:", dir)
			if verify {
				return verifySnapshot(dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "hub access token (defaults to $HF_TOKEN)")
	cmd.Flags().BoolVar(&verify, "verify", false, "parse every downloaded shard header after the pull")
	return cmd
}

// verifySnapshot opens every shard in the snapshot and reports its tensor
// count, failing on the first unparseable shard.
func verifySnapshot(dir string) error {
	shards, err := weights.Discover(dir)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		reader, err := safetensors.Open(shard.Path)
		if err != nil {
			return fmt.Errorf("verify %s: %w", shard.Name, err)
		}
		names := reader.TensorNames()
		_ = reader.Close()
		fmt.Printf("%s: %d tensors\n", shard.Name, len(names))
	}
	return nil
}

func loadCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "load <org/name[@revision]>",
		Short: "Download, aggregate, and initialize a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := progress.Sink(func(ev progress.Event) {
				fmt.Printf("%5.1f%%  %s\n", progress.Estimate(ev)*100, progress.String(ev))
			})
			if quiet {
				sink = func(progress.Event) {}
			}

			loaded, err := load.Load(cmd.Context(), args[0], load.WithSink(sink))
			if err != nil {
				return err
			}

			fmt.Printf("loaded %s (%s, %d layers, vocab %d)\n",
				args[0], loaded.Config.ModelType, loaded.Config.NumLayers, loaded.Config.VocabSize)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}
