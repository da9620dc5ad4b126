package script

import (
	"bufio"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Resolver expands include directives.
//
// Resolver holds no state between calls and is safe for concurrent use as
// long as the underlying filesystem is.
type Resolver struct {
	fs afero.Fs
}

// NewResolver creates a resolver reading from fs. A nil fs uses the OS
// filesystem.
func NewResolver(fs afero.Fs) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{fs: fs}
}

// Fs returns the filesystem the resolver reads from.
func (r *Resolver) Fs() afero.Fs {
	return r.fs
}

// Resolve reads path and returns its lines with every include directive
// replaced by the resolved lines of the referenced file.
//
// Lines keep their original terminators, so strings.Join(lines, "")
// reproduces the spliced text byte for byte.
func (r *Resolver) Resolve(path string) ([]string, error) {
	return r.ResolveChain(path, nil)
}

// ResolveChain resolves path given the chain of files currently being
// resolved (outermost first). The chain is never modified; each recursive
// call receives its own copy.
func (r *Resolver) ResolveChain(path string, chain []string) ([]string, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if slices.Contains(chain, path) {
		return nil, &CycleError{Path: path, Chain: slices.Clone(chain)}
	}

	raw, err := r.readLines(path)
	if err != nil {
		return nil, err
	}

	childChain := append(slices.Clone(chain), path)
	lines := make([]string, 0, len(raw))
	for i, line := range raw {
		keyword, rest, ok := splitDirective(line)
		if !ok || keyword != KeywordInclude {
			lines = append(lines, line)
			continue
		}

		arg := cleanArgument(rest)
		if arg == "" {
			return nil, &DirectiveError{
				Path:    path,
				Line:    i + 1,
				Keyword: keyword,
				Text:    strings.TrimRight(line, "\r\n"),
			}
		}

		included, err := r.ResolveChain(joinRelative(path, arg), childChain)
		if err != nil {
			return nil, err
		}
		lines = append(lines, included...)
	}
	return lines, nil
}

// ResolveText is Resolve joined into a single string.
func (r *Resolver) ResolveText(path string) (string, error) {
	lines, err := r.Resolve(path)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, ""), nil
}

// readLines reads the whole file, closing it before any recursion happens.
func (r *Resolver) readLines(path string) ([]string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var lines []string
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, &FileError{Path: path, Err: err}
		}
	}
}
