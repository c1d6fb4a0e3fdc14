package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/asim800/chatLangGraph/core"
)

// fileCursor walks interaction documents one file at a time so exporting a
// large corpus never requires loading it whole. The file list is captured at
// creation; records written afterwards belong to the next export run.
type fileCursor struct {
	ctx   context.Context
	paths []string
	since time.Time
	next  core.Interaction
	err   error
}

// ExportInteractions implements core.Store. Files are visited in name order,
// which embeds (user, session, interaction id), giving a stable, restartable
// sequence.
func (s *FileStore) ExportInteractions(ctx context.Context, since time.Time) (core.InteractionCursor, error) {
	dir := filepath.Join(s.root, interactionsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list interactions: %v", core.ErrStorage, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	return &fileCursor{ctx: ctx, paths: paths, since: since}, nil
}

// Next advances to the next record matching the time filter. It returns false
// at the end of the sequence or on the first read fault; Err distinguishes.
func (c *fileCursor) Next() (core.Interaction, bool) {
	for len(c.paths) > 0 {
		if err := c.ctx.Err(); err != nil {
			c.err = fmt.Errorf("%w: export cancelled: %v", core.ErrStorage, err)
			return core.Interaction{}, false
		}

		path := c.paths[0]
		c.paths = c.paths[1:]

		data, err := os.ReadFile(path)
		if err != nil {
			c.err = fmt.Errorf("%w: read %s: %v", core.ErrStorage, filepath.Base(path), err)
			return core.Interaction{}, false
		}

		var rec core.Interaction
		if err := json.Unmarshal(data, &rec); err != nil {
			c.err = fmt.Errorf("%w: decode %s: %v", core.ErrStorage, filepath.Base(path), err)
			return core.Interaction{}, false
		}

		if !c.since.IsZero() && rec.Timestamp.Before(c.since) {
			continue
		}
		return rec, true
	}
	return core.Interaction{}, false
}

// Err returns the fault that terminated the cursor, if any.
func (c *fileCursor) Err() error { return c.err }
