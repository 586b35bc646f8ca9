package controller

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/openmediakit/transcriber/internal/watcher"
	"github.com/openmediakit/transcriber/pkg/media"
	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/pipeline"
	"github.com/openmediakit/transcriber/pkg/transcriber"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// Controller wires configuration, the transcription pipeline and the
// optional folder watcher, and tracks run statistics.
type Controller struct {
	Config *models.Config

	coordinator *pipeline.Coordinator
	segmenter   *media.Segmenter
	mediaWatch  *watcher.MediaWatcher

	ctx        context.Context
	cancelFunc context.CancelFunc

	Stats struct {
		StartTime       time.Time
		TotalFiles      int
		SuccessfulFiles int
		FailedFiles     int
	}

	TempDir string
	cleanup []func()
	mu      sync.Mutex
}

// NewController creates a controller from a config file path. An empty
// path keeps the defaults.
func NewController(configFile string, logLevel string, logFile string) (*Controller, error) {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Config:     models.NewDefaultConfig(),
		ctx:        ctx,
		cancelFunc: cancel,
	}

	if err := utils.InitLogger(logLevel, logFile); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logging: %v", err)
	}

	if configFile != "" {
		if err := c.Config.LoadFromFile(configFile); err != nil {
			utils.Warn("config load failed: %v, using defaults", err)
		}
	}

	if c.Config.APIKey == "" {
		cancel()
		return nil, fmt.Errorf("no API key configured (set api_key or MEDIASCRIBE_API_KEY)")
	}

	tempDir, err := os.MkdirTemp(c.Config.TempDir, "mediascribe")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create temp directory: %v", err)
	}
	c.TempDir = tempDir
	c.addCleanup(func() { os.RemoveAll(tempDir) })

	if err := c.initComponents(); err != nil {
		c.Shutdown()
		return nil, err
	}
	c.setupSignalHandlers()

	c.Stats.StartTime = time.Now()

	return c, nil
}

// initComponents builds the pipeline from the configuration.
func (c *Controller) initComponents() error {
	prober := media.NewProber()
	prober.ChunkSizeLimit = int64(c.Config.MaxChunkMB) * 1024 * 1024

	segmenter, err := media.NewSegmenter(
		c.TempDir,
		time.Duration(c.Config.ChunkMinutes)*time.Minute,
		prober,
	)
	if err != nil {
		return err
	}
	c.segmenter = segmenter

	timeout := time.Duration(c.Config.RequestTimeout) * time.Second

	var backend transcriber.Backend
	if c.Config.UseUploadFlow {
		waiter := &transcriber.Waiter{
			MaxAttempts: c.Config.PollMaxAttempts,
			Interval:    time.Duration(c.Config.PollInterval * float64(time.Second)),
			Optimistic:  c.Config.StatusCheckUnreliable,
			GracePeriod: time.Duration(c.Config.GracePeriod * float64(time.Second)),
		}
		backend = transcriber.NewUploadBackend(
			c.Config.APIEndpoint, c.Config.APIKey, c.Config.Model, timeout, waiter)
	} else {
		backend = transcriber.NewInlineBackend(
			c.Config.APIEndpoint, c.Config.APIKey, c.Config.Model, timeout)
	}

	retrier := &transcriber.Retrier{
		MaxAttempts: c.Config.MaxAttempts,
		Delay:       time.Duration(c.Config.RetryDelay * float64(time.Second)),
	}

	c.coordinator = pipeline.NewCoordinator(prober, c.segmenter, backend, retrier, c.progressCallback)
	return nil
}

func (c *Controller) progressCallback(percent int, message string) {
	utils.Info("[%3d%%] %s", percent, message)
}

// ProcessFile runs one media file through the pipeline and writes the
// transcript next to it in the output folder.
func (c *Controller) ProcessFile(filePath string) error {
	c.mu.Lock()
	c.Stats.TotalFiles++
	c.mu.Unlock()

	startTime := time.Now()

	result, err := c.transcribeFile(filePath)
	if err != nil {
		c.mu.Lock()
		c.Stats.FailedFiles++
		c.mu.Unlock()
		color.Red("failed: %s - %v", filepath.Base(filePath), err)
		return err
	}

	outputPath, err := c.writeTranscript(filePath, result.Transcript)
	if err != nil {
		c.mu.Lock()
		c.Stats.FailedFiles++
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.Stats.SuccessfulFiles++
	c.mu.Unlock()

	color.Green("done: %s (%d segments)", filepath.Base(filePath), result.SegmentCount)
	fmt.Printf("transcript: %s\n", outputPath)
	fmt.Printf("elapsed: %s\n", utils.FormatTimeDuration(time.Since(startTime).Seconds()))

	return nil
}

// transcribeFile builds the asset, extracting the audio track first for
// video input, and hands it to the coordinator.
func (c *Controller) transcribeFile(filePath string) (*models.Result, error) {
	mimeType := utils.MediaTypeForPath(filePath)
	if mimeType == "" {
		return nil, utils.NewError(utils.KindInvalidInput,
			"unsupported file type: "+filepath.Ext(filePath), nil)
	}

	audioPath := filePath
	if utils.IsVideoPath(filePath) {
		extracted, err := c.segmenter.ExtractAudio(c.ctx, filePath)
		if err != nil {
			return nil, err
		}
		audioPath = extracted
		mimeType = "audio/mpeg"
		defer os.Remove(extracted)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, utils.NewError(utils.KindInvalidInput, "cannot stat media file", err)
	}

	asset := &models.MediaAsset{
		Path:     audioPath,
		MIMEType: mimeType,
		Size:     info.Size(),
	}

	return c.coordinator.Run(c.ctx, asset)
}

func (c *Controller) writeTranscript(sourcePath, transcript string) (string, error) {
	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	outputPath := filepath.Join(c.Config.OutputFolder, baseName+".txt")

	if err := utils.EnsureDirExists(c.Config.OutputFolder); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(transcript+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}

	return outputPath, nil
}

// RunWatchMode watches the media folder and processes files as they
// arrive, until the context is cancelled.
func (c *Controller) RunWatchMode() error {
	mediaWatch, err := watcher.NewMediaWatcher(c.Config.MediaFolder, func(filePath string) {
		c.ProcessFile(filePath)
	})
	if err != nil {
		return err
	}
	c.mediaWatch = mediaWatch

	if err := mediaWatch.Start(); err != nil {
		return err
	}
	c.addCleanup(mediaWatch.Stop)

	color.Cyan("watching %s for new media files, Ctrl+C to stop", c.Config.MediaFolder)

	<-c.ctx.Done()
	return nil
}

// PrintSummary prints the run statistics.
func (c *Controller) PrintSummary() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.Stats.StartTime)
	fmt.Println("\n--------------------")
	fmt.Printf("files processed: %d\n", c.Stats.TotalFiles)
	color.Green("succeeded: %d", c.Stats.SuccessfulFiles)
	if c.Stats.FailedFiles > 0 {
		color.Red("failed: %d", c.Stats.FailedFiles)
	}
	fmt.Printf("total time: %s\n", utils.FormatTimeDuration(elapsed.Seconds()))
}

// Shutdown cancels the context and runs all cleanup functions.
func (c *Controller) Shutdown() {
	c.cancelFunc()

	c.mu.Lock()
	cleanups := c.cleanup
	c.cleanup = nil
	c.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (c *Controller) addCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup = append(c.cleanup, fn)
}

func (c *Controller) setupSignalHandlers() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		utils.Info("shutdown signal received")
		c.cancelFunc()
	}()
}
