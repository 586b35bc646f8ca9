package watcher

import (
	"os"
	"sync"
	"time"

	"github.com/openmediakit/transcriber/pkg/utils"
)

// SubmitFunc hands a settled media file off to the processing pipeline.
type SubmitFunc func(filePath string)

// MediaWatcher watches the media folder and submits new files once their
// size has stopped changing.
type MediaWatcher struct {
	monitor        *FolderMonitor
	submit         SubmitFunc
	processedFiles map[string]bool
	mutex          sync.Mutex
}

// NewMediaWatcher creates a watcher over mediaFolder that calls submit
// for every new media file.
func NewMediaWatcher(mediaFolder string, submit SubmitFunc) (*MediaWatcher, error) {
	w := &MediaWatcher{
		submit:         submit,
		processedFiles: make(map[string]bool),
	}

	monitor, err := NewFolderMonitor(mediaFolder, utils.MediaExtensions(), w.onFileSettled, 3*time.Second)
	if err != nil {
		return nil, err
	}
	w.monitor = monitor

	return w, nil
}

// Start begins watching.
func (w *MediaWatcher) Start() error {
	return w.monitor.Start()
}

// Stop stops watching.
func (w *MediaWatcher) Stop() {
	w.monitor.Stop()
}

func (w *MediaWatcher) onFileSettled(filePath string) {
	w.mutex.Lock()
	if w.processedFiles[filePath] {
		w.mutex.Unlock()
		return
	}
	w.processedFiles[filePath] = true
	w.mutex.Unlock()

	if !w.waitForStableSize(filePath, 5, time.Second) {
		utils.Warn("file never stabilized, skipping: %s", filePath)
		return
	}

	w.submit(filePath)
}

// waitForStableSize waits until two consecutive size checks agree, which
// guards against picking up files that are still being written.
func (w *MediaWatcher) waitForStableSize(filePath string, checks int, interval time.Duration) bool {
	var lastSize int64 = -1

	for i := 0; i < checks; i++ {
		info, err := os.Stat(filePath)
		if err != nil {
			return false
		}

		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()

		time.Sleep(interval)
	}

	return false
}
