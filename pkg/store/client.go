package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// ClientConfig represents the configuration for the bills store client.
type ClientConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	AccessToken  string        // used as is when ClientID is empty
	Timeout      time.Duration // Default: 30 seconds
}

// Client talks to the bills store over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// BillsResponse is the body of a list call.
type BillsResponse struct {
	Bills []bills.Bill `json:"bills"`
}

// BillResponse is the body of a create or update call.
type BillResponse struct {
	Bill bills.Bill `json:"bill"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewClient creates a new store client. With a ClientID it obtains and
// refreshes its bearer token through the OAuth2 client credentials grant.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(config.APIURL, "/")

	var httpClient *http.Client
	switch {
	case config.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     baseURL + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = cc.Client(ctx)
	case config.AccessToken != "":
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: config.AccessToken,
			TokenType:   "Bearer",
		}))
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// List returns every bill in the store.
func (c *Client) List(ctx context.Context) ([]bills.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/1/bills", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var billsResp BillsResponse
	if err := c.do(req, http.StatusOK, &billsResp); err != nil {
		return nil, err
	}

	return billsResp.Bills, nil
}

// Create stores a new bill along with its receipt.
func (c *Client) Create(ctx context.Context, p Payload) (*bills.Bill, error) {
	return c.send(ctx, http.MethodPost, c.baseURL+"/api/1/bills", http.StatusCreated, p)
}

// Update replaces an existing bill, uploading a new receipt when one is given.
func (c *Client) Update(ctx context.Context, p Payload) (*bills.Bill, error) {
	if p.Bill.ID == "" {
		return nil, errors.New("update requires a bill id")
	}
	endpoint := fmt.Sprintf("%s/api/1/bills/%s", c.baseURL, url.PathEscape(p.Bill.ID))
	return c.send(ctx, http.MethodPut, endpoint, http.StatusOK, p)
}

func (c *Client) send(ctx context.Context, method, endpoint string, expected int, p Payload) (*bills.Bill, error) {
	body, contentType, err := encodePayload(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var billResp BillResponse
	if err := c.do(req, expected, &billResp); err != nil {
		return nil, err
	}

	return &billResp.Bill, nil
}

func (c *Client) do(req *http.Request, expected int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The token fetch reports the store's refusal as a RetrieveError.
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return &APIError{StatusCode: re.Response.StatusCode, Code: re.ErrorCode, Description: re.ErrorDescription}
		}
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// encodePayload builds a multipart body with the bill as a JSON part and the
// receipt, if any, as a file part.
func encodePayload(p Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	billJSON, err := json.Marshal(p.Bill)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode bill: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="bill"`)
	header.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create bill part: %w", err)
	}
	if _, err := part.Write(billJSON); err != nil {
		return nil, "", fmt.Errorf("failed to write bill part: %w", err)
	}

	if p.File != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename=%q`, p.File.Name))
		header.Set("Content-Type", p.File.ContentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(p.File.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

// parseError turns a non-2xx response into an APIError.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Code = errResp.Error
		apiErr.Description = errResp.ErrorDescription
	} else {
		apiErr.Description = strings.TrimSpace(string(body))
	}

	return apiErr
}
