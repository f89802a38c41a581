package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"logship/pkg/index"
	"logship/pkg/model"
)

// DefaultRequestTimeout bounds a single POST to the document store.
const DefaultRequestTimeout = 30 * time.Second

var bulkAction = []byte(`{"index":{}}` + "\n")

// DocumentSink posts normalized records to an Elasticsearch-compatible
// document store. It does not retry.
type DocumentSink struct {
	client *http.Client
}

// NewDocumentSink creates a sink whose transport never uses a proxy.
func NewDocumentSink(timeout time.Duration) *DocumentSink {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	return &DocumentSink{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Send posts one record. The store must answer 201 Created.
func (d *DocumentSink) Send(ctx context.Context, addr index.Address, rec model.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", model.ErrTransformation, err)
	}
	return d.post(ctx, addr, body, http.StatusCreated)
}

// SendBulk posts records as one bulk request of action/document line pairs
// in record order. The store must answer 200 OK or 201 Created.
func (d *DocumentSink) SendBulk(ctx context.Context, addr index.Address, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}

	// 1. Build the newline-delimited body.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		buf.Write(bulkAction)
		// Encode terminates each document with a newline.
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("%w: encode record: %v", model.ErrTransformation, err)
		}
	}
	return d.post(ctx, addr, buf.Bytes(), http.StatusOK, http.StatusCreated)
}

func (d *DocumentSink) post(ctx context.Context, addr index.Address, body []byte, accepted ...int) error {
	u := addr.URL()

	// 2. Create Request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request for %s: %v", model.ErrDelivery, addr, err)
	}

	// 3. Set Headers
	req.Header.Set("Content-Type", "application/json")
	if u.User != nil {
		pwd, _ := u.User.Password()
		req.SetBasicAuth(u.User.Username(), pwd)
	}

	// 4. Send
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post to %s: %v", model.ErrDelivery, addr, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// 5. Check Status
	for _, code := range accepted {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("%w: post to %s failed with status: %d", model.ErrDelivery, addr, resp.StatusCode)
}
