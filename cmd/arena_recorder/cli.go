package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/database"
	gormstorage "github.com/arenalab/arena-recorder/internal/storage/gorm"
	"github.com/arenalab/arena-recorder/internal/storage/memory"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// recordOverview is what --show prints for an exported record.
type recordOverview struct {
	SessionID       string       `json:"session_id"`
	Label           string       `json:"label"`
	StartTime       time.Time    `json:"start_time"`
	Outcome         core.Outcome `json:"outcome"`
	Ticks           uint64       `json:"ticks"`
	DurationSeconds float64      `json:"duration_seconds"`
	FinalWave       int          `json:"final_wave"`
	Events          int          `json:"events"`
	Frames          int          `json:"frames"`
	Stats           core.Stats   `json:"stats"`
	Summary         core.Summary `json:"summary"`
}

func showRecord(out io.Writer, path string) error {
	rec, err := memory.ReadRecord(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(recordOverview{
		SessionID:       rec.SessionID,
		Label:           rec.Label,
		StartTime:       rec.StartTime,
		Outcome:         rec.Outcome,
		Ticks:           rec.Ticks,
		DurationSeconds: rec.DurationSeconds,
		FinalWave:       rec.FinalWave,
		Events:          len(rec.Events),
		Frames:          len(rec.Frames),
		Stats:           rec.Stats,
		Summary:         rec.Summary,
	})
}

// openQueryDB connects to the sqlite file given with --db, or to postgres
// when it is one of the configured storage types.
func openQueryDB(opts options) (*database.Manager, error) {
	m := database.NewManager(infraLogger("query"))

	if opts.db != "" {
		if err := m.ConnectSqlite(opts.db); err != nil {
			return nil, err
		}
		return m, nil
	}

	for _, typ := range strings.Split(config.GetStorageConfig().Type, ",") {
		if strings.EqualFold(strings.TrimSpace(typ), "postgres") {
			if err := m.ConnectPostgres(); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("no database to query: pass --db or configure postgres storage")
}

// runQuery serves --list and --getjson from a stored database.
func runQuery(out io.Writer, opts options) error {
	m, err := openQueryDB(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	b := gormstorage.New(gormstorage.Dependencies{
		DB:         m.DB,
		LogManager: SlogManager,
		DBLogger:   m.Logger,
		Version:    CurrentVersion,
	})

	if opts.list {
		if err := listSessions(out, b); err != nil {
			return err
		}
	}

	if len(opts.getJSON) == 0 {
		return nil
	}

	memCfg := config.GetStorageConfig().Memory
	memCfg.OutputDir = outputDir(opts)
	exporter := memory.New(memCfg)
	if err := exporter.Init(); err != nil {
		return err
	}

	for _, id := range opts.getJSON {
		rec, err := b.LoadSession(strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if err := exporter.SaveSession(rec); err != nil {
			return fmt.Errorf("failed to export session %s: %w", id, err)
		}
		fmt.Fprintln(out, exporter.GetExportedFilePath())
	}
	return nil
}

func listSessions(out io.Writer, b *gormstorage.Backend) error {
	sessions, err := b.ListSessions("")
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tLABEL\tSTART\tOUTCOME\tDURATION\tWAVE\tEVENTS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1fs\t%d\t%d\n",
			s.SessionID, s.Label, s.StartTime.UTC().Format(time.RFC3339),
			s.Outcome, s.DurationSeconds, s.FinalWave, s.EventCount)
	}
	return tw.Flush()
}
