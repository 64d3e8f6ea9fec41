package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flutter-tools/fsd/internal/artifact"
	"github.com/flutter-tools/fsd/internal/diagnostics"
	"github.com/flutter-tools/fsd/internal/fsdconfig"
	"github.com/flutter-tools/fsd/internal/model"
	"github.com/flutter-tools/fsd/internal/session"
	"github.com/flutter-tools/fsd/internal/spawn"
)

var (
	residentSDKRoot              string
	residentTarget               string
	residentTrackWidgetCreation  bool
	residentPackages             string
	residentVFSRoots             []string
	residentVFSScheme            string
	residentInitializeFromDill   string
	residentUnsafePkgSerial      bool
	residentExperiments          []string
)

func addResidentCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "resident",
		Short: "Run a long-lived resident compiler session driven over stdin/stdout",
		Long: `Reads one newline-delimited JSON request object per line from
stdin and writes one JSON response per completed request to stdout. This is
this driver's own IPC with its caller (e.g. a build tool), distinct from
the line protocol this session speaks to the frontend server subprocess.

Each request object has the shape {"kind": "recompile"|"compileExpression"|
"reject"|"accept"|"reset", ...fields}. "accept" and "reset" are fire-and-
forget: no response line is written for them.`,
		Args: cobra.NoArgs,
		RunE: runResident,
	}

	flags := cmd.Flags()
	flags.StringVar(&residentSDKRoot, "sdk-root", "", "SDK root directory")
	flags.StringVar(&residentTarget, "target", "flutter", "target model: flutter or flutter_runner")
	flags.BoolVar(&residentTrackWidgetCreation, "track-widget-creation", false, "")
	flags.StringVar(&residentPackages, "packages", "", "package map file")
	flags.StringArrayVar(&residentVFSRoots, "filesystem-root", nil, "virtual filesystem root (repeatable)")
	flags.StringVar(&residentVFSScheme, "filesystem-scheme", "", "virtual filesystem scheme")
	flags.StringVar(&residentInitializeFromDill, "initialize-from-dill", "", "")
	flags.BoolVar(&residentUnsafePkgSerial, "unsafe-package-serialization", false, "")
	flags.StringArrayVar(&residentExperiments, "enable-experiment", nil, "experimental flag (repeatable)")

	parent.AddCommand(cmd)
}

// wireRequest is the CLI's newline-JSON envelope for one Request (§4.12).
type wireRequest struct {
	Kind             string   `json:"kind"`
	MainPath         string   `json:"mainPath,omitempty"`
	Invalidated      []string `json:"invalidated,omitempty"`
	Output           string   `json:"output,omitempty"`
	PackagesFilePath string   `json:"packagesFilePath,omitempty"`
	Expression       string   `json:"expression,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
	TypeDefinitions  []string `json:"typeDefinitions,omitempty"`
	LibraryURI       string   `json:"libraryUri,omitempty"`
	Class            string   `json:"class,omitempty"`
	IsStatic         *bool    `json:"isStatic,omitempty"`
}

type wireResponse struct {
	OutputFilePath string `json:"outputFilePath,omitempty"`
	ErrorCount     int    `json:"errorCount"`
	Error          string `json:"error,omitempty"`
}

func runResident(c *cobra.Command, args []string) error {
	setupLogging()

	sdkRoot, err := fsdconfig.ResolveSDKRoot(residentSDKRoot)
	if err != nil {
		return err
	}
	target, err := model.ParseTargetModel(residentTarget)
	if err != nil {
		return err
	}

	set, err := artifact.Locate(sdkRoot, artifact.Options{})
	if err != nil {
		return err
	}

	sink := diagnostics.NewLogrusSink(log, "frontend-server", "stderr", !noColorFlag)

	cfg := model.SessionConfig{
		SDKRoot:                    sdkRoot,
		TrackWidgetCreation:        residentTrackWidgetCreation,
		PackagesFilePath:           residentPackages,
		VFSRoots:                   residentVFSRoots,
		VFSScheme:                  residentVFSScheme,
		InitializeFromDill:         residentInitializeFromDill,
		Target:                     target,
		UnsafePackageSerialization: residentUnsafePkgSerial,
		ExperimentalFlags:          residentExperiments,
		Sink:                       sink,
	}

	sess := session.New(cfg, spawn.Exec{}, set)
	defer sess.Shutdown()

	out := bufio.NewWriter(c.OutOrStdout())
	defer out.Flush()

	scanner := bufio.NewScanner(c.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var req wireRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			writeResponse(out, nil, fmt.Errorf("%w: %v", model.ErrProtocolViolation, err))
			continue
		}
		dispatchResident(sess, &req, out)
	}
	return scanner.Err()
}

func dispatchResident(sess *session.Session, req *wireRequest, out *bufio.Writer) {
	switch req.Kind {
	case "recompile":
		result, err := sess.Recompile(model.Request{
			MainPath:         req.MainPath,
			Invalidated:      req.Invalidated,
			Output:           req.Output,
			PackagesFilePath: req.PackagesFilePath,
		})
		writeResponse(out, result, err)
	case "compileExpression":
		result, err := sess.CompileExpression(model.Request{
			Expression:      req.Expression,
			Definitions:     req.Definitions,
			TypeDefinitions: req.TypeDefinitions,
			LibraryURI:      req.LibraryURI,
			Class:           req.Class,
			IsStatic:        req.IsStatic,
		})
		writeResponse(out, result, err)
	case "reject":
		result, err := sess.Reject()
		writeResponse(out, result, err)
	case "accept":
		sess.Accept()
	case "reset":
		sess.ResetServer()
	default:
		writeResponse(out, nil, fmt.Errorf("unknown request kind %q", req.Kind))
	}
}

func writeResponse(out *bufio.Writer, result *model.CompilerOutput, err error) {
	resp := wireResponse{}
	if result != nil {
		resp.OutputFilePath = result.OutputFilePath
		resp.ErrorCount = result.ErrorCount
	}
	if err != nil {
		resp.Error = err.Error()
	}
	data, _ := json.Marshal(resp)
	out.Write(data)
	out.WriteByte('\n')
	out.Flush()
}
