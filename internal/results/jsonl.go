package results

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

// JSONL appends results to one file per UTC day. Deletes are tombstone lines.
// Files older than the retention period are gzip-compressed and still readable.
type JSONL struct {
	dir       string
	retention int
	mu        sync.Mutex
	now       func() time.Time
}

var _ interfaces.ResultStore = (*JSONL)(nil)

type jsonlRecord struct {
	ID      string                `json:"id"`
	Deleted bool                  `json:"deleted,omitempty"`
	Result  *types.AnalysisResult `json:"result,omitempty"`
}

func NewJSONL(dir string, retentionDays int) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	j := &JSONL{dir: dir, retention: retentionDays, now: time.Now}
	if err := j.CompressOlder(retentionDays); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *JSONL) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.UTC().Format("2006-01-02")+".jsonl")
}

func (j *JSONL) append(rec jsonlRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(j.dailyFilepath(j.now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (j *JSONL) Save(_ context.Context, r *types.AnalysisResult) (string, error) {
	prepare(r)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.append(jsonlRecord{ID: r.ID, Result: r}); err != nil {
		return "", fmt.Errorf("append result: %w", err)
	}
	return r.ID, nil
}

func (j *JSONL) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (j *JSONL) List(ctx context.Context, opts interfaces.ListOptions) ([]*types.AnalysisResult, error) {
	j.mu.Lock()
	all, err := j.load(ctx)
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sym := normalizeSymbol(opts.Symbol)
	out := make([]*types.AnalysisResult, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if sym != "" && all[i].Symbol != sym {
			continue
		}
		out = append(out, all[i])
	}
	newestFirst(out)
	return applyLimit(out, opts.Limit), nil
}

func (j *JSONL) Delete(ctx context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.load(ctx)
	if err != nil {
		return err
	}
	for _, r := range all {
		if r.ID == id {
			return j.append(jsonlRecord{ID: id, Deleted: true})
		}
	}
	return ErrNotFound
}

func (j *JSONL) Close() error { return nil }

// load replays every file oldest first and returns live results in save order
func (j *JSONL) load(ctx context.Context) ([]*types.AnalysisResult, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".jsonl.gz")) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	live := map[string]*types.AnalysisResult{}
	var order []string
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := replay(filepath.Join(j.dir, name), func(rec jsonlRecord) {
			switch {
			case rec.Deleted:
				delete(live, rec.ID)
			case rec.Result != nil:
				if _, seen := live[rec.ID]; !seen {
					order = append(order, rec.ID)
				}
				live[rec.ID] = rec.Result
			}
		}); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}

	out := make([]*types.AnalysisResult, 0, len(live))
	for _, id := range order {
		if r, ok := live[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func replay(path string, fn func(jsonlRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	return sc.Err()
}

// CompressOlder gzips day files last modified before the retention cutoff.
// A day that already has a .gz gets the file appended as another gzip member.
func (j *JSONL) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := appendGzip(p, p+".gz"); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

// appendGzip writes src as a new gzip member at the end of dst. On failure dst
// is cut back to its previous size.
func appendGzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := out.Stat()
	if err != nil {
		out.Close()
		return err
	}
	prev := info.Size()

	gw := gzip.NewWriter(out)
	_, err = io.Copy(gw, in)
	if cerr := gw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = out.Truncate(prev)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil && prev == 0 {
		_ = os.Remove(dst)
	}
	return err
}
