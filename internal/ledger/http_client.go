package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const cborContentType = "application/cbor"

// HTTPClient talks to a ledger gateway that exposes the three ledger
// methods as POST endpoints with CBOR encoded bodies:
//
//	POST {base}/query_blocks   QueryBlocksRequest  -> QueryBlocksResponse
//	POST {base}/transfer       TransferArgs        -> transferResult
//	POST {base}/transfer_fee   {}                  -> transferFeeResult
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

type transferResult struct {
	Ok  *uint64        `cbor:"Ok,omitempty"`
	Err *TransferError `cbor:"Err,omitempty"`
}

type transferFeeResult struct {
	TransferFee Tokens `cbor:"transfer_fee"`
}

// NewHTTPClient returns a client for the gateway at baseURL. A zero
// timeout falls back to ten seconds.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// QueryBlocks implements Client.
func (c *HTTPClient) QueryBlocks(ctx context.Context, start, length uint64) (QueryBlocksResponse, error) {
	var out QueryBlocksResponse
	err := c.call(ctx, "query_blocks", QueryBlocksRequest{Start: start, Length: length}, &out)
	return out, err
}

// Transfer implements Client.
func (c *HTTPClient) Transfer(ctx context.Context, args TransferArgs) (uint64, error) {
	var out transferResult
	if err := c.call(ctx, "transfer", args, &out); err != nil {
		return 0, err
	}
	switch {
	case out.Err != nil:
		return 0, out.Err
	case out.Ok == nil:
		return 0, fmt.Errorf("%w: transfer response carries neither Ok nor Err", ErrUnavailable)
	}
	return *out.Ok, nil
}

// TransferFee implements Client.
func (c *HTTPClient) TransferFee(ctx context.Context) (Tokens, error) {
	var out transferFeeResult
	err := c.call(ctx, "transfer_fee", struct{}{}, &out)
	return out.TransferFee, err
}

func (c *HTTPClient) call(ctx context.Context, method string, in, out any) error {
	body, err := cbor.Marshal(in)
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", cborContentType)
	req.Header.Set("Accept", cborContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrUnavailable, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, method, resp.StatusCode)
	}
	if err := cbor.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformed, method, err)
	}
	return nil
}
