package load

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dramakit/drama/common/datatype"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/components/model"
)

func init() {
	registry.Default.MustRegister(&registry.Component{
		Name:        "core.catalog.load.ImportTSV",
		Description: "Imports a tab-separated values file from an online resource given its url",
		Outputs:     []string{model.SimpleTabularDataset.Name()},
		Params:      map[string]string{"url": "", "delimiter": "\t", "comment": "#"},
		Execute:     importTSV,
	})
}

// importTSV fetches a TSV, strips comments and blank lines, and publishes the
// cleaned file as a SimpleTabularDataset.
func importTSV(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	rawURL, _ := params["url"].(string)
	if rawURL == "" {
		return nil, fmt.Errorf("importtsv: url param is required")
	}
	comment, _ := params["comment"].(string)
	if comment == "" {
		comment = "#"
	}

	filePath, err := fetch(ctx, pcs, rawURL, "")
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(pcs.Storage.LocalDir(), "out.tsv")
	if err := decomment(filePath, outPath, comment); err != nil {
		return nil, err
	}
	pcs.Info("out file: " + outPath)

	remote, err := pcs.Storage.PutFile(ctx, outPath, "")
	if err != nil {
		return nil, err
	}

	out := model.SimpleTabularDataset.New(datatype.Values{
		"resource":    remote.String(),
		"delimiter":   "\t",
		"file_format": ".tsv",
	})
	if _, err := pcs.ToDownstream(ctx, out); err != nil {
		return nil, err
	}

	return &models.TaskResult{Files: []models.ResultFile{models.NewResultFile(remote)}}, nil
}

func decomment(src, dest, comment string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("importtsv: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("importtsv: create %s: %w", dest, err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), comment)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fmt.Fprintln(writer, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("importtsv: read %s: %w", src, err)
	}
	return writer.Flush()
}
