// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package genericconf

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalFileWriter = bufferedFileWriter{}

// bufferedFileWriter hands records to a rotating log file. At most
// BufSize writes may be in flight; records beyond that are dropped so that
// a slow disk never blocks the caller.
type bufferedFileWriter struct {
	mutex  sync.Mutex
	writer *lumberjack.Logger
	cancel context.CancelFunc

	slots chan struct{}
	done  chan struct{}
}

func (w *bufferedFileWriter) Write(p []byte) (int, error) {
	select {
	case w.slots <- struct{}{}:
		w.mutex.Lock()
		_, _ = w.writer.Write(p)
		w.mutex.Unlock()
		w.done <- struct{}{}
	default:
	}
	return len(p), nil
}

// open is not threadsafe
func (w *bufferedFileWriter) open(config *FileLoggingConfig, filename string) io.Writer {
	_ = w.close()
	w.writer = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		LocalTime:  config.LocalTime,
		Compress:   config.Compress,
	}
	w.slots = make(chan struct{}, config.BufSize)
	w.done = make(chan struct{}, config.BufSize)
	slots, done := w.slots, w.done
	var ctx context.Context
	ctx, w.cancel = context.WithCancel(context.Background())
	go func() {
		for {
			select {
			case <-slots:
				<-done
			case <-ctx.Done():
				return
			}
		}
	}()
	return w
}

// close is not threadsafe
func (w *bufferedFileWriter) close() error {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.writer != nil {
		if err := w.writer.Close(); err != nil {
			return err
		}
		w.writer = nil
	}
	return nil
}

// InitLog installs the default logger. It is not threadsafe.
func InitLog(logType string, logLevel string, fileLoggingConfig *FileLoggingConfig, pathResolver func(string) string) error {
	if err := globalFileWriter.close(); err != nil {
		return fmt.Errorf("failed to close file writer: %w", err)
	}
	output := io.Writer(os.Stderr)
	if fileLoggingConfig.Enable {
		output = io.MultiWriter(output, globalFileWriter.open(fileLoggingConfig, pathResolver(fileLoggingConfig.File)))
	}
	handler, err := HandlerFromLogType(logType, output)
	if err != nil {
		return fmt.Errorf("error parsing log type when creating handler: %w", err)
	}
	level, err := ToSlogLevel(logLevel)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(level)
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
