// internal/pointer/feed.go
package pointer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"
)

// TailFeed follows a text file and moves a Tracker for every line it reads.
// A line is either "x y" in canvas coordinates or "leave". Blank lines and
// lines starting with '#' are ignored.
type TailFeed struct {
	logger  *zap.Logger
	path    string
	tracker *Tracker
	poll    bool
}

// NewTailFeed prepares a feed for path. Nothing is opened until Run.
func NewTailFeed(logger *zap.Logger, path string, tracker *Tracker) *TailFeed {
	return &TailFeed{
		logger:  logger.Named("pointer-feed"),
		path:    path,
		tracker: tracker,
	}
}

// WithPolling switches from filesystem notifications to stat polling, for
// filesystems without inotify support.
func (f *TailFeed) WithPolling(poll bool) *TailFeed {
	f.poll = poll
	return f
}

// Run follows the file from its beginning until ctx is cancelled or the
// tailer stops. Malformed lines are logged and skipped.
func (f *TailFeed) Run(ctx context.Context) error {
	f.logger.Info("Following pointer feed.", zap.String("path", f.path))

	t, err := tail.TailFile(f.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      f.poll,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail pointer feed: %w", err)
	}
	defer func() {
		_ = t.Stop()
		// Cleanup releases the shared inotify watch; polling never took one.
		if !f.poll {
			t.Cleanup()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Stopping pointer feed.")
			return nil

		case line, ok := <-t.Lines:
			if !ok {
				f.logger.Info("Pointer feed closed.")
				return t.Err()
			}
			if line.Err != nil {
				f.logger.Warn("Error reading pointer feed", zap.Error(line.Err))
				continue
			}
			if err := f.apply(line.Text); err != nil {
				f.logger.Warn("Skipping malformed pointer line", zap.String("line", line.Text), zap.Error(err))
			}
		}
	}
}

func (f *TailFeed) apply(text string) error {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}
	if strings.EqualFold(text, "leave") {
		f.tracker.Leave()
		return nil
	}
	x, y, err := ParseLine(text)
	if err != nil {
		return err
	}
	f.tracker.Move(x, y)
	return nil
}

// ParseLine reads an "x y" pair. Commas are accepted as separators.
func ParseLine(text string) (x, y float64, err error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want 2 coordinates, got %d", len(fields))
	}
	if x, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("bad x: %w", err)
	}
	if y, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("bad y: %w", err)
	}
	return x, y, nil
}
