package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/logger"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the document indexes",
}

var indexAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Ingest normalised specification files",
	Long: `Reads one or more JSON files, each containing a single document or an
array of documents, and indexes them. Re-ingesting an existing document ID
replaces its content.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexAdd,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document from storage and both indexes",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild both indexes from the document store",
	Long: `Re-feeds the keyword and vector indexes from stored documents.
Use after index corruption or when index files are lost.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-ingest changed specification files",
	Long: `Watches a directory for JSON specification files. Created and modified
files are (re)ingested; removed files have their documents deleted from the
indexes. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexWatch,
}

func init() {
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexWatchCmd)
	rootCmd.AddCommand(indexCmd)
}

// documentFile is the on-disk shape of an ingestable document.
type documentFile struct {
	ID             string    `json:"id"`
	SourceType     string    `json:"sourceType"`
	OwnerSystem    string    `json:"ownerSystem"`
	Environment    string    `json:"environment"`
	Region         string    `json:"region"`
	PIIFlag        bool      `json:"piiFlag"`
	RequiredScopes []string  `json:"requiredScopes"`
	LastUpdatedAt  time.Time `json:"lastUpdatedAt"`
	RawText        string    `json:"rawText"`
}

func (f documentFile) toDomain() domain.Document {
	return domain.Document{
		ID:             f.ID,
		SourceType:     domain.SourceType(f.SourceType),
		OwnerSystem:    f.OwnerSystem,
		Environment:    domain.Environment(f.Environment),
		Region:         f.Region,
		PIIFlag:        f.PIIFlag,
		RequiredScopes: f.RequiredScopes,
		LastUpdatedAt:  f.LastUpdatedAt,
		RawText:        f.RawText,
	}
}

// loadDocumentFile parses a JSON file holding either one document object
// or an array of them.
func loadDocumentFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	var files []documentFile
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		var one documentFile
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		files = []documentFile{one}
	}

	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, f.toDomain())
	}
	return docs, nil
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	total := 0
	for _, path := range args {
		docs, err := loadDocumentFile(path)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := ingestService.IndexDocument(cmd.Context(), doc); err != nil {
				return fmt.Errorf("indexing %s: %w", doc.ID, err)
			}
			total++
		}
		cmd.Printf("Indexed %d document(s) from %s\n", len(docs), path)
	}
	cmd.Printf("Done. %d document(s) indexed.\n", total)
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	id := args[0]
	if err := ingestService.RemoveDocument(cmd.Context(), id); err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	cmd.Printf("Removed document: %s\n", id)
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.RebuildIndexes(cmd.Context()); err != nil {
		return fmt.Errorf("rebuilding indexes: %w", err)
	}
	cmd.Println("Indexes rebuilt.")
	return nil
}

func runIndexWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s for specification changes. Ctrl+C to stop.\n", dir)

	// ingested remembers which document IDs came from which file so a
	// deleted file can have its documents removed from the indexes.
	ingested := make(map[string][]string)

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleWatchEvent(cmd, event, ingested)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleWatchEvent ingests created or modified spec files and removes
// documents for deleted ones. Non-JSON and hidden paths are ignored.
func handleWatchEvent(cmd *cobra.Command, event fsnotify.Event, ingested map[string][]string) {
	if filepath.Ext(event.Name) != ".json" {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		docs, err := loadDocumentFile(event.Name)
		if err != nil {
			logger.Warn("Skipping %s: %v", event.Name, err)
			return
		}
		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			if err := ingestService.IndexDocument(cmd.Context(), doc); err != nil {
				logger.Warn("Indexing %s failed: %v", doc.ID, err)
				continue
			}
			ids = append(ids, doc.ID)
			cmd.Printf("Indexed: %s\n", doc.ID)
		}
		ingested[event.Name] = ids
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		for _, id := range ingested[event.Name] {
			if err := ingestService.RemoveDocument(cmd.Context(), id); err != nil {
				logger.Warn("Removing %s failed: %v", id, err)
				continue
			}
			cmd.Printf("Removed: %s\n", id)
		}
		delete(ingested, event.Name)
	}
}
