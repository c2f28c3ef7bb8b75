// Package read holds components that consume tabular datasets.
package read

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/components/model"
)

func init() {
	registry.Default.MustRegister(&registry.Component{
		Name:        "core.catalog.read.ReadTSV",
		Description: "Reads a TSV file",
		Inputs:      map[string]string{"TabularDataset": model.SimpleTabularDataset.Name()},
		Execute:     readTSV,
	})
}

// readTSV fetches its upstream dataset and logs every row.
func readTSV(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	inputs, err := pcs.GetFromUpstream(ctx)
	if err != nil {
		return nil, err
	}

	datasets := inputs["TabularDataset"]
	if len(datasets) == 0 {
		return nil, fmt.Errorf("readtsv: no TabularDataset input received")
	}
	dataset := datasets[0]

	resource, _ := dataset["resource"].(string)
	delimiter, _ := dataset["delimiter"].(string)
	if delimiter == "" {
		delimiter = "\t"
	}

	filePath, err := pcs.Storage.GetFile(ctx, resource)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("readtsv: open %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = rune(delimiter[0])
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("readtsv: parse %s: %w", filePath, err)
	}
	for _, row := range rows {
		pcs.Info(fmt.Sprint(row))
	}

	return &models.TaskResult{Message: fmt.Sprintf("read %d rows", len(rows))}, nil
}
