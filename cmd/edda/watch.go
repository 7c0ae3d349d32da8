package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fagemx/edda/internal/coordination"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail coordination-log activity for the current project",
	Long: `watch prints each new coordination record (claim/unclaim/binding/
request/request_ack) as it lands in coordination.jsonl, for an operator
watching multiple agent sessions collaborate on one workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, projectID, err := openWorkspace()
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		// Only the project id is needed; release the ledger's writer lock
		// so hooks can append while watch runs.
		_ = l.Close()
		if projectID == "" {
			return fmt.Errorf("could not resolve a project id for the current directory")
		}

		storeDir := userCoordDir()
		path := filepath.Join(storeDir, "projects", projectID, "coordination.jsonl")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create coordination dir: %w", err)
		}

		f, err := os.Open(path) // #nosec G304 - path built from controlled storeDir/projectID
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("open coordination log: %w", err)
			}
			// Not written yet; create it empty so fsnotify has something to watch.
			if cf, cerr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644); cerr == nil {
				_ = cf.Close()
			}
			f, err = os.Open(path) // #nosec G304 - same controlled path as above
			if err != nil {
				return fmt.Errorf("open coordination log: %w", err)
			}
		}
		defer f.Close()

		offset, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("seek coordination log: %w", err)
		}
		_ = offset

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch coordination dir: %w", err)
		}

		fmt.Fprintf(os.Stderr, "watching %s (press Ctrl+C to exit)\n", path)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		printNewLines(f)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Has(fsnotify.Write) {
					printNewLines(f)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			case <-sigCh:
				return nil
			}
		}
	},
}

// printNewLines reads and prints every full line appended to f since the
// last call, rendering each coordination record as a one-line summary.
func printNewLines(f *os.File) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var rec coordination.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			fmt.Printf("(malformed record) %s\n", line)
			continue
		}
		fmt.Println(renderRecord(rec))
	}
}

func renderRecord(rec coordination.Record) string {
	ts := rec.TS.Format("15:04:05")
	switch rec.Kind {
	case coordination.RecordClaim:
		return fmt.Sprintf("%s claim   %s/%s -> %v", ts, rec.SessionID, rec.Label, rec.PathGlobs)
	case coordination.RecordUnclaim:
		return fmt.Sprintf("%s unclaim %s/%s", ts, rec.SessionID, rec.Label)
	case coordination.RecordBinding:
		return fmt.Sprintf("%s binding %s=%s (%s)", ts, rec.Key, rec.Value, rec.Reason)
	case coordination.RecordRequest:
		return fmt.Sprintf("%s request %s -> %s: %s", ts, rec.FromLabel, rec.ToLabel, rec.Message)
	case coordination.RecordRequestAck:
		return fmt.Sprintf("%s ack     %s -> %s", ts, rec.FromLabel, rec.ToLabel)
	default:
		return fmt.Sprintf("%s %s", ts, rec.Kind)
	}
}
