// Package runner executes snippets with the host toolchains. It is the
// default core.Executor; deployments wanting a real sandbox swap it out
// behind the interface.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

const defaultTimeout = 10 * time.Second

// Runner writes the source into a scratch directory, runs the language's
// toolchain, and returns trimmed stdout. Compile-and-run languages clean up
// their build artifacts with the scratch dir.
type Runner struct {
	Dir     string
	Timeout time.Duration
}

func New(dir string) *Runner {
	return &Runner{Dir: dir, Timeout: defaultTimeout}
}

func (r *Runner) Execute(ctx context.Context, language, source string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scratch, err := os.MkdirTemp(r.Dir, "exec-*")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	argv, err := commandFor(strings.ToLower(language), scratch, source)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = scratch
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("module", "runner").Str("language", language).Msg("executing snippet")
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("execution timed out after %s", timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func commandFor(language, scratch, source string) ([]string, error) {
	write := func(name string) (string, error) {
		path := filepath.Join(scratch, name)
		if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
			return "", fmt.Errorf("write source: %w", err)
		}
		return path, nil
	}

	switch language {
	case "python":
		path, err := write("main.py")
		if err != nil {
			return nil, err
		}
		return []string{"python3", path}, nil
	case "javascript":
		path, err := write("main.js")
		if err != nil {
			return nil, err
		}
		return []string{"node", path}, nil
	case "java":
		// Single-file source launch; javac artifacts never hit disk.
		path, err := write("Main.java")
		if err != nil {
			return nil, err
		}
		return []string{"java", path}, nil
	case "cpp":
		path, err := write("main.cpp")
		if err != nil {
			return nil, err
		}
		bin := filepath.Join(scratch, "main.out")
		return []string{"sh", "-c", fmt.Sprintf("g++ %s -o %s && %s", path, bin, bin)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
}
