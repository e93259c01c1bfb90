package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mogaika/scene_interop/config"
	"github.com/mogaika/scene_interop/scene/fbxio"
	"github.com/mogaika/scene_interop/scene/gltfio"
	"github.com/mogaika/scene_interop/webutils"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scene_interop",
	Short: "Inspect, animate and convert 3D scenes",
	Long: `scene_interop loads glTF and native animation images into a common
scene model, evaluates node animations and exports glTF, FBX or native images.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		webutils.Logger = logger.Named("web")

		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		return applyConfig(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyConfig pushes process wide settings into the format packages.
func applyConfig(c *config.Config) error {
	if err := c.Apply(); err != nil {
		return err
	}
	gltfio.DefaultTicksPerSecond = c.Animation.DefaultTicksPerSecond
	gltfio.RootName = c.Export.RootName
	fbxio.DefaultOptions = fbxio.Options{
		DefaultTicksPerSecond: c.Animation.DefaultTicksPerSecond,
		SampleRate:            c.Export.SampleRate,
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to yaml config")

	rootCmd.AddCommand(serveCmd, convertCmd, evalCmd, dumpCmd, poseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
