package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/openmediakit/transcriber/internal/controller"
	"github.com/openmediakit/transcriber/pkg/utils"
)

var (
	inputFile  = flag.String("input", "", "media file to transcribe")
	watchMode  = flag.Bool("watch", false, "watch the media folder for new files")
	configFile = flag.String("config", "", "config file path")
	logLevel   = flag.String("log-level", "INFO", "log level (VERBOSE, INFO, WARN)")
	logFile    = flag.String("log-file", "", "log file path")
)

func main() {
	os.Exit(run())
}

// run keeps os.Exit out of the deferred-cleanup path so the controller's
// temp directory is removed even when a stage fails.
func run() int {
	flag.Parse()

	*logLevel = strings.ToUpper(*logLevel)
	switch *logLevel {
	case utils.LogLevelVerbose, utils.LogLevelNormal, utils.LogLevelQuiet:
	default:
		*logLevel = utils.LogLevelNormal
	}

	printWelcome()

	if !checkDependencies() {
		fmt.Fprintln(os.Stderr, "ffmpeg and ffprobe are required, aborting")
		return 1
	}

	ctrl, err := controller.NewController(*configFile, *logLevel, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		return 1
	}
	defer ctrl.Shutdown()

	switch {
	case *inputFile != "":
		if err := ctrl.ProcessFile(*inputFile); err != nil {
			ctrl.PrintSummary()
			return 1
		}
	case *watchMode || ctrl.Config.WatchMode:
		if err := ctrl.RunWatchMode(); err != nil {
			fmt.Fprintf(os.Stderr, "watch mode failed: %v\n", err)
			return 1
		}
	default:
		flag.Usage()
		return 2
	}

	ctrl.PrintSummary()
	return 0
}

func printWelcome() {
	color.Cyan("mediascribe - chunked media transcription")
	fmt.Println("--------------------")
}

func checkDependencies() bool {
	ok := true
	if !utils.CheckFFmpeg() {
		color.Red("ffmpeg not found in PATH")
		ok = false
	}
	if !utils.CheckFFprobe() {
		color.Red("ffprobe not found in PATH")
		ok = false
	}
	return ok
}
