package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/dagview/internal/ctxlog"
)

// fileRoot decodes all possible top-level blocks from any config file.
type fileRoot struct {
	Workflows []*workflowBlock `hcl:"workflow,block"`
	Settings  *settingsBlock   `hcl:"settings,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type workflowBlock struct {
	ID    string       `hcl:"id,label"`
	Tasks []*taskBlock `hcl:"task,block"`
}

type taskBlock struct {
	ID            string            `hcl:"id,label"`
	Operator      *string           `hcl:"operator,optional"`
	Color         hcl.Expression    `hcl:"color,optional"`
	TextColor     hcl.Expression    `hcl:"text_color,optional"`
	Owner         *string           `hcl:"owner,optional"`
	Retries       *int              `hcl:"retries,optional"`
	DependsOnPast *bool             `hcl:"depends_on_past,optional"`
	StartDate     *string           `hcl:"start_date,optional"`
	EndDate       *string           `hcl:"end_date,optional"`
	Upstream      []string          `hcl:"upstream,optional"`
	Sub           *subworkflowBlock `hcl:"subworkflow,block"`
}

type subworkflowBlock struct {
	ID    *string      `hcl:"id,optional"`
	Tasks []*taskBlock `hcl:"task,block"`
}

type settingsBlock struct {
	ListenPort    *int     `hcl:"listen_port,optional"`
	BackendURL    *string  `hcl:"backend_url,optional"`
	PollInterval  *string  `hcl:"poll_interval,optional"`
	NodeSep       *float64 `hcl:"node_sep,optional"`
	RankSep       *float64 `hcl:"rank_sep,optional"`
	RankDirection *string  `hcl:"rank_direction,optional"`
	Transition    *string  `hcl:"transition,optional"`
	NumRuns       *int     `hcl:"num_runs,optional"`
}

// Loader parses and translates HCL configuration.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load walks the given paths for .hcl files, decodes every workflow and
// settings block found, and translates them into the unified Model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	m := &Model{Settings: defaultSettings()}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, wb := range root.Workflows {
			wf, err := l.translateWorkflow(ctx, wb)
			if err != nil {
				return nil, fmt.Errorf("in file %s: %w", file, err)
			}
			if m.Workflow(wf.ID) != nil {
				return nil, fmt.Errorf("workflow %q defined twice", wf.ID)
			}
			m.Workflows = append(m.Workflows, wf)
		}
		if root.Settings != nil {
			if err := mergeSettings(&m.Settings, root.Settings); err != nil {
				return nil, fmt.Errorf("in file %s: %w", file, err)
			}
		}
	}

	logger.Debug("HCL loading complete.", "workflows", len(m.Workflows))
	return m, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. A configured path that does not exist is not an error.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}

func defaultSettings() Settings {
	return Settings{
		ListenPort:    DefaultListenPort,
		PollInterval:  DefaultPollInterval,
		RankDirection: DefaultRankDirection,
		Transition:    DefaultTransition,
		NumRuns:       DefaultNumRuns,
	}
}

func mergeSettings(s *Settings, b *settingsBlock) error {
	if b.ListenPort != nil {
		s.ListenPort = *b.ListenPort
	}
	if b.BackendURL != nil {
		s.BackendURL = *b.BackendURL
	}
	if b.PollInterval != nil {
		d, err := time.ParseDuration(*b.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		s.PollInterval = d
	}
	if b.NodeSep != nil {
		s.NodeSep = *b.NodeSep
	}
	if b.RankSep != nil {
		s.RankSep = *b.RankSep
	}
	if b.RankDirection != nil {
		dir := *b.RankDirection
		if dir != "TB" && dir != "LR" {
			return fmt.Errorf("invalid rank_direction %q: must be 'TB' or 'LR'", dir)
		}
		s.RankDirection = dir
	}
	if b.Transition != nil {
		d, err := time.ParseDuration(*b.Transition)
		if err != nil {
			return fmt.Errorf("invalid transition: %w", err)
		}
		s.Transition = d
	}
	if b.NumRuns != nil {
		if *b.NumRuns <= 0 {
			return fmt.Errorf("invalid num_runs %d: must be positive", *b.NumRuns)
		}
		s.NumRuns = *b.NumRuns
	}
	return nil
}
