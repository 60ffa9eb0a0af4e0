package restyutil

import (
	"fmt"
	"path"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpExchanges writes a transcript of every response received by `client` to `output`,
// the values of `redactFields` in form bodies are hidden. Transcripts are named
// "<sequence>-<page>", ex. "0003-rechnungen.php".
func DumpExchanges(client *resty.Client, output Output, redactFields ...string) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		if res.Request.RawRequest == nil {
			return nil
		}
		id := atomic.AddUint64(&counter, 1)
		page := path.Base(res.Request.RawRequest.URL.Path)
		output.Write(fmt.Sprintf("%04d-%s", id, page), formatExchange(res, redactFields))
		return nil
	})
}
