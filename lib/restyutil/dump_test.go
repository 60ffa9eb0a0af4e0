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
	mutex       sync.Mutex
	transcripts map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.transcripts[id] = contents
}

func TestDumpExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "secret-session"})
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	output := &memoryOutput{transcripts: map[string]string{}}
	client := resty.New()
	DumpExchanges(client, output, "login_password")

	_, err := client.R().Get(server.URL + "/app/index.php")
	require.NoError(t, err)
	_, err = client.R().
		SetFormData(map[string]string{"login_rufnummer": "0681", "login_password": "hunter2"}).
		Post(server.URL + "/app/index.php")
	require.NoError(t, err)

	require.Len(t, output.transcripts, 2)
	first := output.transcripts["0001-index.php"]
	require.Contains(t, first, "GET "+server.URL+"/app/index.php")
	require.Contains(t, first, "<html>ok</html>")
	require.Contains(t, first, "Set-Cookie: "+redacted)
	require.NotContains(t, first, "secret-session")

	second := output.transcripts["0002-index.php"]
	require.Contains(t, second, "login_rufnummer=0681")
	require.NotContains(t, second, "hunter2")
}

func TestRedactForm(t *testing.T) {
	require.Equal(t, "a=1&b=%3Credacted%3E", redactForm("a=1&b=2", []string{"b"}))
	require.Equal(t, "a=1", redactForm("a=1", []string{"b"}))
	require.Equal(t, `{"a":1}`, redactForm(`{"a":1}`, nil))
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	output.Write("0001-index.php", "transcript")
	contents, err := os.ReadFile(filepath.Join(dir, "0001-index.php.txt"))
	require.NoError(t, err)
	require.Equal(t, "transcript", string(contents))
}
