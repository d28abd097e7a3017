package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "skyward-backend/dev/env"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one dump per http exchange.
type Output interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears dir (which may use the `<dev_state>` prefix) and writes every
// dump into it as a separate file.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

// AttachOutput dumps every response the client receives to output, dumps are named
// `<sequence>_<method>.txt`.
func AttachOutput(client *resty.Client, output Output) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := fmt.Sprintf("%03d_%s.txt", atomic.AddUint64(&counter, 1), res.Request.Method)
		output.Write(id, FormatMessage(res))
		return nil
	})
}
