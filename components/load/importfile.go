// Package load holds components that bring external data into a workflow.
package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dramakit/drama/common/datatype"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/common/storage"
	"github.com/dramakit/drama/components/model"
)

func init() {
	registry.Default.MustRegister(&registry.Component{
		Name:        "core.catalog.load.ImportFile",
		Description: "Imports a file from an online resource given its url",
		Outputs:     []string{model.TempFile.Name()},
		Params:      map[string]string{"url": "", "parameters": ""},
		Execute:     importFile,
	})
}

// importFile resolves the url through storage first, so workflow-internal
// resources need no download; anything else is fetched over HTTP into the
// task's local dir.
func importFile(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	rawURL, _ := params["url"].(string)
	if rawURL == "" {
		return nil, fmt.Errorf("importfile: url param is required")
	}
	parameters, _ := params["parameters"].(string)

	filePath, err := fetch(ctx, pcs, rawURL, parameters)
	if err != nil {
		return nil, err
	}

	remote, err := pcs.Storage.PutFile(ctx, filePath, "")
	if err != nil {
		return nil, err
	}

	out := model.TempFile.New(datatype.Values{"resource": remote.String()})
	if _, err := pcs.ToDownstream(ctx, out); err != nil {
		return nil, err
	}

	return &models.TaskResult{Files: []models.ResultFile{models.NewResultFile(remote)}}, nil
}

// fetch returns a local path for the url: the storage copy when the scheme is
// one of ours, an HTTP download otherwise.
func fetch(ctx context.Context, pcs *process.Process, rawURL, parameters string) (string, error) {
	filePath, err := pcs.Storage.GetFile(ctx, rawURL)
	if err == nil {
		return filePath, nil
	}
	var schemeErr *storage.NotValidSchemeError
	if !errors.As(err, &schemeErr) && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	pcs.Warn("no valid scheme was provided")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("importfile: parse url: %w", err)
	}
	fileName := path.Base(parsed.Path)
	filePath = filepath.Join(pcs.Storage.LocalDir(), fileName)

	if parameters != "" {
		rawURL += parameters
	}
	if err := download(ctx, rawURL, filePath); err != nil {
		return "", err
	}
	return filePath, nil
}

func download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("importfile: build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("importfile: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("importfile: fetch %s: status %s", rawURL, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("importfile: create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("importfile: write %s: %w", dest, err)
	}
	return nil
}
