package submission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/goneos/pkg/script"
)

// ErrInvalidRequest indicates a request that names neither or both of a
// command script and a model file.
var ErrInvalidRequest = errors.New("invalid submission request")

// Request describes what to submit.
//
// Exactly one of RunPath (run-script mode) and ModelPath (direct mode) must
// be set. DataPath is only used in direct mode.
type Request struct {
	RunPath   string
	ModelPath string
	DataPath  string

	Category string
	Solver   string
	Email    string
	Comments string
}

// Mode returns "run" or "direct".
func (r Request) Mode() string {
	if r.RunPath != "" {
		return "run"
	}
	return "direct"
}

// Submission is an assembled document plus the files that went into it.
type Submission struct {
	Document   Document
	RunPath    string
	ModelPaths []string
	DataPaths  []string
}

// Assembler builds documents from files on disk. It performs no network I/O.
type Assembler struct {
	resolver *script.Resolver
	client   string
}

// NewAssembler creates an assembler reading files through resolver. A nil
// resolver reads from the OS filesystem.
func NewAssembler(resolver *script.Resolver) *Assembler {
	if resolver == nil {
		resolver = script.NewResolver(nil)
	}
	return &Assembler{resolver: resolver, client: ClientIdentifier}
}

// Assemble resolves every referenced file and builds the document.
//
// Either every file resolves and a complete document is returned, or an
// error is returned and nothing is built.
func (a *Assembler) Assemble(req Request) (*Submission, error) {
	runPath := strings.TrimSpace(req.RunPath)
	modelPath := strings.TrimSpace(req.ModelPath)
	dataPath := strings.TrimSpace(req.DataPath)

	switch {
	case runPath != "" && modelPath != "":
		return nil, fmt.Errorf("%w: command script and model file are mutually exclusive", ErrInvalidRequest)
	case runPath == "" && modelPath == "":
		return nil, fmt.Errorf("%w: a command script or a model file is required", ErrInvalidRequest)
	case runPath != "" && dataPath != "":
		return nil, fmt.Errorf("%w: data file is only accepted with a model file", ErrInvalidRequest)
	}

	sub := &Submission{RunPath: runPath}
	commands := ""
	if runPath != "" {
		lines, err := a.resolver.Resolve(runPath)
		if err != nil {
			return nil, err
		}
		cs, err := script.Parse(runPath, lines)
		if err != nil {
			return nil, err
		}
		sub.ModelPaths = cs.ModelPaths
		sub.DataPaths = cs.DataPaths
		commands = cs.Commands()
	} else {
		sub.ModelPaths = []string{modelPath}
		if dataPath != "" {
			sub.DataPaths = []string{dataPath}
		}
	}

	model, err := a.concat(sub.ModelPaths)
	if err != nil {
		return nil, err
	}
	data, err := a.concat(sub.DataPaths)
	if err != nil {
		return nil, err
	}

	sub.Document = Document{
		Category:  req.Category,
		Solver:    req.Solver,
		InputType: InputType,
		Client:    a.client,
		Priority:  Priority,
		Email:     req.Email,
		Model:     model,
		Data:      data,
		Commands:  commands,
		Comments:  req.Comments,
	}
	return sub, nil
}

// concat resolves each path independently and joins the results in order.
func (a *Assembler) concat(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		text, err := a.resolver.ResolveText(p)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
