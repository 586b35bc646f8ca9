package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openmediakit/transcriber/pkg/utils"
)

// FileHandler is invoked once a watched file has settled.
type FileHandler func(filePath string)

// FolderMonitor watches a folder for new media files. Create/write events
// are debounced so that a file still being copied in is only handed to
// the handler after it stops changing.
type FolderMonitor struct {
	watcher        *fsnotify.Watcher
	folderPath     string
	fileExtensions []string
	handler        FileHandler
	debounceTime   time.Duration
	pendingFiles   map[string]*time.Timer
	mutex          sync.Mutex
	stopChan       chan struct{}
}

// NewFolderMonitor creates a new folder monitor.
func NewFolderMonitor(folderPath string, extensions []string, handler FileHandler, debounceTime time.Duration) (*FolderMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	monitor := &FolderMonitor{
		watcher:        watcher,
		folderPath:     folderPath,
		fileExtensions: extensions,
		handler:        handler,
		debounceTime:   debounceTime,
		pendingFiles:   make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
	}

	return monitor, nil
}

// Start begins watching the folder.
func (m *FolderMonitor) Start() error {
	if err := os.MkdirAll(m.folderPath, 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	if err := m.watcher.Add(m.folderPath); err != nil {
		return fmt.Errorf("failed to watch folder: %w", err)
	}

	go m.watchLoop()

	utils.Info("watching folder: %s", m.folderPath)
	return nil
}

// Stop stops watching and cancels pending debounce timers.
func (m *FolderMonitor) Stop() {
	close(m.stopChan)
	m.watcher.Close()
	utils.Info("stopped watching folder: %s", m.folderPath)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, timer := range m.pendingFiles {
		timer.Stop()
	}
}

func (m *FolderMonitor) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("folder watch error: %v", err)
		}
	}
}

func (m *FolderMonitor) handleFileEvent(event fsnotify.Event) {
	// Only create and write events matter.
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	filePath := event.Name
	if !m.isTargetFile(filePath) {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// Restart the debounce window on every new event for the file.
	if timer, exists := m.pendingFiles[filePath]; exists {
		timer.Stop()
	}

	m.pendingFiles[filePath] = time.AfterFunc(m.debounceTime, func() {
		m.settleFile(filePath)
	})

	utils.Debug("file change detected: %s", filePath)
}

func (m *FolderMonitor) isTargetFile(filePath string) bool {
	fileInfo, err := os.Stat(filePath)
	if err != nil || fileInfo.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	for _, targetExt := range m.fileExtensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}

func (m *FolderMonitor) settleFile(filePath string) {
	m.mutex.Lock()
	delete(m.pendingFiles, filePath)
	m.mutex.Unlock()

	// The file may have been removed while the debounce timer ran.
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return
	}

	utils.Info("file settled, handing off: %s", filePath)
	if m.handler != nil {
		m.handler(filePath)
	}
}
