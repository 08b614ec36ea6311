package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/john/chatbridge/internal/message"
)

// FileTimeLayout is the timestamp suffix of archive file names,
// which are named platform_channel_<FileTimeLayout>.jsonl
const FileTimeLayout = "20060102_150405"

// Record is one archived line
type Record struct {
	ID         string          `json:"id"`
	ArchivedAt time.Time       `json:"archived_at"`
	Message    message.Message `json:"message"`
}

// fileWriter manages a single JSONL file
type fileWriter struct {
	file         *os.File
	writer       *bufio.Writer
	createdAt    time.Time
	bytesWritten int64
	pending      []Record
	platform     message.Platform
	channel      string
	filename     string
}

// Recorder buffers unified messages and writes them to one JSONL file per platform and channel
type Recorder struct {
	outputDir     string
	bufferSize    int
	rotateAfter   time.Duration
	rotateBytes   int64
	checkInterval time.Duration
	logger        *slog.Logger

	files map[string]*fileWriter // key: "platform_channel"
	mu    sync.Mutex
}

// New creates a new recorder
func New(outputDir string, bufferSize, rotateMinutes, rotateMegabytes int, logger *slog.Logger) *Recorder {
	return &Recorder{
		outputDir:     outputDir,
		bufferSize:    bufferSize,
		rotateAfter:   time.Duration(rotateMinutes) * time.Minute,
		rotateBytes:   int64(rotateMegabytes) * 1024 * 1024,
		checkInterval: time.Minute,
		logger:        logger.With("component", "recorder"),
		files:         make(map[string]*fileWriter),
	}
}

// Start records messages until ctx is cancelled. Completed files are sent on fileChan.
func (r *Recorder) Start(ctx context.Context, messageChan <-chan message.Message, fileChan chan<- string) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				r.flushAll(fileChan)
				return nil
			}
			if err := r.record(msg); err != nil {
				r.logger.Error("record message", "error", err)
			}

		case <-ticker.C:
			r.checkRotation(fileChan)

		case <-ctx.Done():
			r.logger.Info("recorder shutting down, flushing buffers")
			r.flushAll(fileChan)
			return ctx.Err()
		}
	}
}

func (r *Recorder) record(msg message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := archiveChannel(msg.Source)
	key := fmt.Sprintf("%s_%s", msg.Source.Platform, channel)
	fw := r.files[key]

	if fw == nil {
		var err error
		fw, err = r.createFileWriter(msg.Source.Platform, channel)
		if err != nil {
			return fmt.Errorf("create file writer: %w", err)
		}
		r.files[key] = fw
	}

	fw.pending = append(fw.pending, Record{
		ID:         uuid.NewString(),
		ArchivedAt: time.Now().UTC(),
		Message:    msg,
	})

	if len(fw.pending) >= r.bufferSize {
		if err := fw.flush(r.logger); err != nil {
			return fmt.Errorf("flush buffer: %w", err)
		}
	}

	return nil
}

func (r *Recorder) createFileWriter(platform message.Platform, channel string) (*fileWriter, error) {
	now := time.Now().UTC()
	filename := fmt.Sprintf("%s_%s_%s.jsonl", platform, channel, now.Format(FileTimeLayout))

	file, err := os.OpenFile(filepath.Join(r.outputDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	r.logger.Info("created archive file", "file", filename)

	return &fileWriter{
		file:      file,
		writer:    bufio.NewWriter(file),
		createdAt: now,
		pending:   make([]Record, 0, r.bufferSize),
		platform:  platform,
		channel:   channel,
		filename:  filename,
	}, nil
}

// flush writes buffered records to disk
func (fw *fileWriter) flush(logger *slog.Logger) error {
	for _, rec := range fw.pending {
		data, err := json.Marshal(rec)
		if err != nil {
			logger.Error("marshal record", "id", rec.ID, "error", err)
			continue
		}

		n, err := fw.writer.Write(append(data, '\n'))
		fw.bytesWritten += int64(n)
		if err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	fw.pending = fw.pending[:0]
	return fw.writer.Flush()
}

// close flushes and closes the file, returning its path
func (fw *fileWriter) close(outputDir string, logger *slog.Logger) string {
	if err := fw.flush(logger); err != nil {
		logger.Error("flush file", "file", fw.filename, "error", err)
	}
	if err := fw.file.Close(); err != nil {
		logger.Error("close file", "file", fw.filename, "error", err)
	}
	return filepath.Join(outputDir, fw.filename)
}

func (r *Recorder) checkRotation(fileChan chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, fw := range r.files {
		switch {
		case time.Since(fw.createdAt) >= r.rotateAfter:
			r.logger.Info("rotating file", "file", fw.filename, "reason", "time")
		case fw.bytesWritten >= r.rotateBytes:
			r.logger.Info("rotating file", "file", fw.filename, "reason", "size")
		default:
			continue
		}
		r.rotateFile(key, fw, fileChan)
	}
}

// rotateFile closes the current file and opens a new one for the same channel
func (r *Recorder) rotateFile(key string, fw *fileWriter, fileChan chan<- string) {
	r.queue(fw.close(r.outputDir, r.logger), fileChan)

	newFw, err := r.createFileWriter(fw.platform, fw.channel)
	if err != nil {
		r.logger.Error("create file writer", "error", err)
		delete(r.files, key)
		return
	}
	r.files[key] = newFw
}

func (r *Recorder) flushAll(fileChan chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, fw := range r.files {
		r.queue(fw.close(r.outputDir, r.logger), fileChan)
		delete(r.files, key)
	}

	r.logger.Info("all files flushed and closed")
}

// queue hands a finished file to the uploader without blocking. Files that
// do not fit are picked up by the startup scan on the next run.
func (r *Recorder) queue(path string, fileChan chan<- string) {
	if fileChan == nil {
		return
	}
	select {
	case fileChan <- path:
		r.logger.Info("queued file for upload", "file", filepath.Base(path))
	default:
		r.logger.Warn("upload queue full, file will be uploaded later", "file", filepath.Base(path))
	}
}

// archiveChannel names the file a message is archived in. Discord channel
// names are only unique within a guild, so the channel ID is appended.
func archiveChannel(src message.Source) string {
	channel := sanitizeChannel(src.ChannelName)
	if src.Platform == message.PlatformDiscord && src.ChannelID != "" {
		channel += "-" + sanitizeChannel(src.ChannelID)
	}
	return channel
}

var unsafeChannelChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeChannel makes a channel name safe for file names and S3 keys
func sanitizeChannel(name string) string {
	name = unsafeChannelChars.ReplaceAllString(name, "-")
	if name == "" {
		return "unknown"
	}
	return name
}
