package memory

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// FileName builds the export file name for a record:
// <label>_<start>_<id prefix>.<format>[.gz]
func FileName(rec *core.SessionRecord, format string, compress bool) string {
	label := strings.ReplaceAll(rec.Label, " ", "_")
	label = strings.ReplaceAll(label, ":", "_")
	label = strings.ReplaceAll(label, string(filepath.Separator), "_")
	if label == "" {
		label = "unlabeled"
	}

	id := rec.SessionID
	if len(id) > 8 {
		id = id[:8]
	}

	name := fmt.Sprintf("%s_%s_%s.%s", label, rec.StartTime.UTC().Format("20060102_150405"), id, format)
	if compress {
		name += ".gz"
	}
	return name
}

// export writes the record to a file and returns its path
func (b *Backend) export(rec *core.SessionRecord) (string, error) {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, FileName(rec, b.cfg.Format, b.cfg.CompressOutput))

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gzWriter *gzip.Writer
	if b.cfg.CompressOutput {
		gzWriter = gzip.NewWriter(f)
		w = gzWriter
	}

	buf := bufio.NewWriter(w)
	if err := encode(buf, rec, b.cfg.Format); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	if gzWriter != nil {
		if err := gzWriter.Close(); err != nil {
			return "", fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return outputPath, nil
}

func encode(w io.Writer, rec *core.SessionRecord, format string) error {
	switch format {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		// same field names as the JSON contract
		enc.SetCustomStructTag("json")
		return enc.Encode(rec)
	default:
		return json.NewEncoder(w).Encode(rec)
	}
}

// ReadRecord loads an exported record. The format and compression are taken
// from the file extension.
func ReadRecord(path string) (*core.SessionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	rec := &core.SessionRecord{}
	switch filepath.Ext(name) {
	case "." + FormatMsgpack:
		dec := msgpack.NewDecoder(bufio.NewReader(r))
		dec.SetCustomStructTag("json")
		err = dec.Decode(rec)
	case "." + FormatJSON:
		err = json.NewDecoder(r).Decode(rec)
	default:
		return nil, fmt.Errorf("unknown export format: %s", filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}
