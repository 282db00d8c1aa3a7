package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/markdave123-py/officerag/internal/core"
)

var _ core.Converter = (*LibreOffice)(nil)

// LibreOffice converts legacy office files with a headless soffice process.
// Every conversion runs in its own temp dir, which also holds the soffice
// user profile so parallel conversions do not contend on a lock file.
type LibreOffice struct {
	bin     string
	timeout time.Duration
	log     *slog.Logger
}

func NewLibreOffice(bin string, timeout time.Duration) *LibreOffice {
	if bin == "" {
		bin = "soffice"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &LibreOffice{bin: bin, timeout: timeout, log: slog.With("component", "converter")}
}

// Convert writes <name>.<targetExt> into a fresh temp dir. cleanup is never
// nil and removes the temp dir, including partial output.
func (l *LibreOffice) Convert(ctx context.Context, path, targetExt string) (string, func(), error) {
	noop := func() {}
	dir, err := os.MkdirTemp("", "officerag-convert-*")
	if err != nil {
		return "", noop, fmt.Errorf("%w: temp dir: %w", core.ErrConversionFailure, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			l.log.Warn("converted artifact not removed", "dir", dir, "error", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, l.bin,
		"-env:UserInstallation=file://"+filepath.ToSlash(filepath.Join(dir, "profile")),
		"--headless",
		"--convert-to", targetExt,
		"--outdir", dir,
		path,
	)
	cmd.WaitDelay = 10 * time.Second
	start := time.Now()
	out, err := cmd.CombinedOutput()
	diag := strings.TrimSpace(string(out))

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return "", cleanup, fmt.Errorf("%w: timed out after %s: %s", core.ErrConversionFailure, l.timeout, diag)
	case err != nil:
		return "", cleanup, fmt.Errorf("%w: %s: %w: %s", core.ErrConversionFailure, l.bin, err, diag)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	converted := filepath.Join(dir, base+"."+targetExt)
	if _, err := os.Stat(converted); err != nil {
		return "", cleanup, fmt.Errorf("%w: no %s output produced: %s", core.ErrConversionFailure, targetExt, diag)
	}

	l.log.Info("file converted", "source", filepath.Base(path), "target", targetExt, "took", time.Since(start))
	return converted, cleanup, nil
}
