package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flutter-tools/fsd/internal/artifact"
	"github.com/flutter-tools/fsd/internal/batch"
	"github.com/flutter-tools/fsd/internal/diagnostics"
	"github.com/flutter-tools/fsd/internal/fsdconfig"
	"github.com/flutter-tools/fsd/internal/model"
	"github.com/flutter-tools/fsd/internal/spawn"
)

var (
	compileSDKRoot             string
	compileOutput              string
	compileDepfile             string
	compileTarget              string
	compileTrackWidgetCreation bool
	compileAOT                 bool
	compileProduct             bool
	compileLinkPlatform        bool
	compilePackages            string
	compileVFSRoots            []string
	compileVFSScheme           string
	compileIncrementalStore    string
	compileExtra               []string
)

func addCompileCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "compile <main.dart>",
		Short: "One-shot fingerprint-gated batch compile",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}

	flags := cmd.Flags()
	flags.StringVar(&compileSDKRoot, "sdk-root", "", "SDK root directory")
	flags.StringVar(&compileOutput, "output", "", "output .dill path")
	flags.StringVar(&compileDepfile, "depfile", "", "depfile path, enables fingerprint gating")
	flags.StringVar(&compileTarget, "target", "flutter", "target model: flutter or flutter_runner")
	flags.BoolVar(&compileTrackWidgetCreation, "track-widget-creation", false, "")
	flags.BoolVar(&compileAOT, "aot", false, "")
	flags.BoolVar(&compileProduct, "product", false, "")
	flags.BoolVar(&compileLinkPlatform, "link-platform", true, "")
	flags.StringVar(&compilePackages, "packages", "", "package map file")
	flags.StringArrayVar(&compileVFSRoots, "filesystem-root", nil, "virtual filesystem root (repeatable)")
	flags.StringVar(&compileVFSScheme, "filesystem-scheme", "", "virtual filesystem scheme")
	flags.StringVar(&compileIncrementalStore, "incremental-byte-store", "", "incremental byte store path")
	flags.StringArrayVar(&compileExtra, "extra-option", nil, "extra compiler option (repeatable)")

	parent.AddCommand(cmd)
}

func runCompile(c *cobra.Command, args []string) error {
	setupLogging()

	sdkRoot, err := fsdconfig.ResolveSDKRoot(compileSDKRoot)
	if err != nil {
		return err
	}

	target, err := model.ParseTargetModel(compileTarget)
	if err != nil {
		return err
	}

	sink := diagnostics.NewLogrusSink(log, "frontend-server", "stderr", !noColorFlag)
	driver := batch.New(spawn.Exec{}, sink, artifact.Options{})

	opts := model.BatchOptions{
		SDKRoot:              sdkRoot,
		MainPath:             args[0],
		OutputPath:           compileOutput,
		DepFilePath:          compileDepfile,
		Target:               target,
		LinkPlatform:         compileLinkPlatform,
		AOT:                  compileAOT,
		TrackWidgetCreation:  compileTrackWidgetCreation,
		ExtraOptions:         compileExtra,
		IncrementalByteStore: compileIncrementalStore,
		PackagesFilePath:     compilePackages,
		VFSRoots:             compileVFSRoots,
		VFSScheme:            compileVFSScheme,
		ProductVM:            compileProduct,
	}

	result, err := driver.Compile(c.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.OutOrStdout(), "%s %d\n", result.OutputFilePath, result.ErrorCount)
	return nil
}
