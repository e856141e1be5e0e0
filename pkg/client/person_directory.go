package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"roomtrack/pkg/model"
)

// PersonDirectoryClient resolves external identification tokens (badge or
// id-number values) to internal person ids against the person directory
// service. Master data lives there; this client only reads snapshots.
type PersonDirectoryClient struct {
	httpClient *HttpClient
}

func NewPersonDirectoryClient(baseURL string) *PersonDirectoryClient {
	return &PersonDirectoryClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// Lookup returns (nil, nil) when no person matches the identifier; lookup
// transport failures are returned as errors and treated by callers as
// "person not found", never as fatal.
func (c *PersonDirectoryClient) Lookup(ctx context.Context, method, value string) (*model.Person, error) {
	q := url.Values{}
	q.Set("method", method)
	q.Set("value", value)

	resp, err := c.httpClient.GET(ctx, "/api/v1/persons/lookup?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("person lookup failed: %w", err)
	}
	return decodePerson(resp)
}

// GetPerson fetches a person snapshot by the already-known internal id.
func (c *PersonDirectoryClient) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/persons/id/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("person fetch failed: %w", err)
	}
	return decodePerson(resp)
}

func decodePerson(resp *Response) (*model.Person, error) {
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("person directory returned status %d", resp.StatusCode)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode person wrapper: %w", err)
	}

	var person model.Person
	if err := json.Unmarshal(wrapper.Data, &person); err != nil {
		return nil, fmt.Errorf("could not decode person json: %w", err)
	}
	return &person, nil
}
