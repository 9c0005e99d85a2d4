package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// logStamp is the UTC timestamp embedded in log file names.
const logStamp = "20060102_150405"

// LogFilePath names the log file of a recorder process started at
// sessionStart: <logsDir>/<app>.<yyyymmdd_hhmmss>.log, stamped in UTC.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	name := fmt.Sprintf("%s.%s.log", appName, sessionStart.UTC().Format(logStamp))
	return filepath.Join(logsDir, name)
}

// RotateExisting moves a log file left at path by a previous process started
// in the same second to path+".old". A missing file is not an error.
func RotateExisting(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.Rename(path, path+".old"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}
