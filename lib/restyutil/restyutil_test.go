package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex sync.Mutex
	dumps map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.dumps[id] = contents
}

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal", "family-access")
		w.Write([]byte("<html>gradebook</html>"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAttachOutput(t *testing.T) {
	server := newServer(t)
	output := &memoryOutput{dumps: map[string]string{}}

	client := resty.New().SetBaseURL(server.URL)
	AttachOutput(client, output)

	_, err := client.R().SetFormData(map[string]string{"dwd": "abc"}).Post("/sfgradebook001.w")
	require.NoError(t, err)
	_, err = client.R().Get("/")
	require.NoError(t, err)

	require.Len(t, output.dumps, 2)
	post := output.dumps["001_POST.txt"]
	require.Contains(t, post, "POST "+server.URL+"/sfgradebook001.w")
	require.Contains(t, post, "X-Portal: family-access")
	require.Contains(t, post, "<html>gradebook</html>")
	require.Contains(t, output.dumps, "002_GET.txt")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	err := os.MkdirAll(dir, 0777)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600)
	require.NoError(t, err)

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "stale.txt"))
	require.True(t, os.IsNotExist(err))

	output.Write("001_GET.txt", "dump")
	contents, err := os.ReadFile(filepath.Join(dir, "001_GET.txt"))
	require.NoError(t, err)
	require.Equal(t, "dump", string(contents))
}
