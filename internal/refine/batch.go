package refine

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/worker"
)

// Refiner defines the interface for refining one request
type Refiner interface {
	Refine(ctx context.Context, req Request) (*Result, error)
}

// FileJob refines the contents of one file
type FileJob struct {
	Path    string
	Mode    model.Mode
	UserID  string
	OrgID   string
	Refiner Refiner
}

// Execute reads the file and refines it; the path doubles as the document id
func (j *FileJob) Execute(ctx context.Context) worker.Result {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return &FileResult{Path: j.Path, Error: fmt.Errorf("read %s: %w", j.Path, err)}
	}
	result, err := j.Refiner.Refine(ctx, Request{
		Text: string(data),
		Mode: j.Mode,
		Tenant: model.Tenant{
			UserID:     j.UserID,
			OrgID:      j.OrgID,
			DocumentID: j.Path,
		},
	})
	if err != nil {
		return &FileResult{Path: j.Path, Error: err}
	}
	return &FileResult{Path: j.Path, Result: result}
}

// FileResult represents the outcome of one file job
type FileResult struct {
	Path   string
	Result *Result
	Error  error
}

// GetError returns the error from the file result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchRefiner refines many files concurrently
type BatchRefiner struct {
	refiner Refiner
	pool    *worker.Pool
}

// NewBatchRefiner creates a new batch refiner
func NewBatchRefiner(refiner Refiner, concurrency int) *BatchRefiner {
	return &BatchRefiner{
		refiner: refiner,
		pool:    worker.NewPool(concurrency),
	}
}

// ProcessFiles refines each file for one author, results in input order
func (b *BatchRefiner) ProcessFiles(ctx context.Context, paths []string, mode model.Mode, tenant model.Tenant) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	jobs := make([]worker.Job, len(paths))
	for i, path := range paths {
		jobs[i] = &FileJob{
			Path:    path,
			Mode:    mode,
			UserID:  tenant.UserID,
			OrgID:   tenant.OrgID,
			Refiner: b.refiner,
		}
	}

	results := b.pool.Run(ctx, jobs)

	out := make([]*FileResult, len(results))
	for i, r := range results {
		if fr, ok := r.(*FileResult); ok {
			out[i] = fr
			continue
		}
		out[i] = &FileResult{Path: paths[i], Error: r.GetError()}
	}
	return out
}

// ListFiles returns the text files under dir (.txt, .md), sorted
func ListFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".markdown":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPathsFromFile reads file paths from a list file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
