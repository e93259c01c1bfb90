package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mogaika/scene_interop/interop"
	"github.com/mogaika/scene_interop/rotscript"
	"github.com/mogaika/scene_interop/scene"
	"github.com/mogaika/scene_interop/utils"
	"github.com/mogaika/scene_interop/web"
)

var (
	serveAddr string
	serveRoot string
	dumpDepth int
	dumpRaw   bool
	poseTime  float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scenes of a directory over http",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if serveRoot != "" {
			cfg.Server.Root = serveRoot
		}
		return web.StartServer(cfg, logger)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert a scene, the output format follows the output extension",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

var evalCmd = &cobra.Command{
	Use:   "eval [script]",
	Short: "Run a rotation script, - reads stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print the scene model of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var poseCmd = &cobra.Command{
	Use:   "pose [file] [animation]",
	Short: "Print node transforms of an animation at a point in time",
	Args:  cobra.ExactArgs(2),
	RunE:  runPose,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "i", "", "Address of server, overrides config")
	serveCmd.Flags().StringVar(&serveRoot, "root", "", "Directory with scene files, overrides config")
	dumpCmd.Flags().IntVar(&dumpDepth, "depth", 6, "Maximum nesting depth, 0 for unlimited")
	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "Dump native image header instead of the scene")
	poseCmd.Flags().Float64VarP(&poseTime, "time", "t", 0, "Time in seconds")
}

func loadScene(path string) (*scene.Scene, error) {
	s, err := scene.ImportFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid scene %q", path)
	}
	logger.Debug("Loaded scene", zap.String("path", path),
		zap.Int("nodes", len(s.Nodes())), zap.Int("meshes", len(s.Meshes)), zap.Int("animations", len(s.Animations)))
	return s, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	s, err := loadScene(in)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := scene.Export(&buf, filepath.Ext(out), s); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "Failed to write %q", out)
	}
	logger.Info("Converted", zap.String("from", in), zap.String("to", out), zap.Int("size", buf.Len()))
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	var text []byte
	var err error
	if args[0] == "-" {
		text, err = io.ReadAll(cmd.InOrStdin())
	} else {
		text, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	result, err := rotscript.Eval(text)
	out := cmd.OutOrStdout()
	if result != nil {
		for _, step := range result.Trace {
			fmt.Fprintf(out, "%4d  %-32s  %v", step.Statement.Line, step.Statement.String(), step.Rotation)
			if step.Vector != nil {
				fmt.Fprintf(out, "  -> %v", *step.Vector)
			}
			fmt.Fprintln(out)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "result %v\n", result.Rotation)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if dumpRaw {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		img, err := interop.ReadImage(f)
		if err != nil {
			return err
		}
		head := img.Data
		if len(head) > 64 {
			head = head[:64]
		}
		fmt.Fprintf(out, "base 0x%x root 0x%x size %d\n%s\n", img.Base, img.Root, len(img.Data), utils.DumpToOneLineString(head))
		return nil
	}

	s, err := loadScene(args[0])
	if err != nil {
		return err
	}
	utils.Dump(out, dumpDepth, s)
	return nil
}

func runPose(cmd *cobra.Command, args []string) error {
	s, err := loadScene(args[0])
	if err != nil {
		return err
	}
	anim := s.FindAnimation(args[1])
	if anim == nil {
		return errors.Errorf("No animation %q in %q", args[1], args[0])
	}

	e := scene.NewEvaluator(anim, cfg.Animation.DefaultTicksPerSecond)
	p := e.Pose(s, poseTime)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s at %vs (%v ticks)\n", anim.Name, p.Time, p.Ticks)
	return s.RootNode.Walk(func(node *scene.Node, depth int) error {
		sc, rot, pos := p.Global[node.Name].Decompose()
		fmt.Fprintf(out, "%*s%s  pos %v  rot %v  scale %v\n", depth*2, "", node.Name, pos, rot, sc)
		return nil
	})
}
