package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/spachava753/nbsmoke/internal/models"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

type notebookDoc struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType       string           `json:"cell_type"`
	ExecutionCount *int             `json:"execution_count"`
	Outputs        []notebookOutput `json:"outputs"`
}

type notebookOutput struct {
	OutputType string   `json:"output_type"`
	Ename      string   `json:"ename"`
	Evalue     string   `json:"evalue"`
	Traceback  []string `json:"traceback"`
}

// ReadCellFailure returns the first error output of a code cell in the
// executed notebook at path, or nil if no cell raised.
func ReadCellFailure(path string) (*models.CellFailure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading executed notebook: %w", err)
	}

	var doc notebookDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing executed notebook: %w", err)
	}

	for i, cell := range doc.Cells {
		if cell.CellType != "code" {
			continue
		}
		for _, out := range cell.Outputs {
			if out.OutputType != "error" {
				continue
			}
			tb := make([]string, len(out.Traceback))
			for j, line := range out.Traceback {
				tb[j] = ansiEscape.ReplaceAllString(line, "")
			}
			return &models.CellFailure{
				Index:          i,
				ExecutionCount: cell.ExecutionCount,
				Ename:          out.Ename,
				Evalue:         out.Evalue,
				Traceback:      tb,
			}, nil
		}
	}

	return nil, nil
}
