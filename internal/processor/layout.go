package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
)

// Layout holds the absolute directories shared between the service and the external tools.
// Uploads, props and outputs are named by job identifier; the caption file keeps the
// transcriber's stem-based naming.
type Layout struct {
	Root    string
	Uploads string
	Public  string
	Output  string
}

// NewLayout resolves the configured directories against the project root
func NewLayout(cfg config.PathsConfig) (Layout, error) {
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}

	return Layout{
		Root:    root,
		Uploads: resolve(cfg.UploadDir),
		Public:  resolve(cfg.PublicDir),
		Output:  resolve(cfg.OutputDir),
	}, nil
}

// EnsureDirs creates every directory of the layout
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Uploads, l.Public, l.Output} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Stem returns a file's base name without its extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CaptionPath is where the transcriber writes captions for inputPath
func (l Layout) CaptionPath(inputPath string) string {
	return filepath.Join(l.Public, Stem(inputPath)+".json")
}

// UploadPath returns the stored location of an uploaded file
func (l Layout) UploadPath(name string) string {
	return filepath.Join(l.Uploads, filepath.Base(name))
}

// PropsPath is where a job's render props are written
func (l Layout) PropsPath(jobID string) string {
	return filepath.Join(l.Uploads, jobID+".props.json")
}

// OutputPath is where the renderer writes a job's video
func (l Layout) OutputPath(jobID string) string {
	return filepath.Join(l.Output, jobID+".mp4")
}

// OutputURL is the public path of a job's rendered video
func OutputURL(jobID string) string {
	return "/out/" + jobID + ".mp4"
}
