package external

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	mojangAPIBase = "https://api.mojang.com"
	userAgent     = "whitelistd/1.0"
)

// ErrProfileNotFound means Mojang knows no account for the username.
var ErrProfileNotFound = errors.New("mojang: profile not found")

// MojangClient handles communication with the Mojang profile API.
type MojangClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewMojangClient creates a new Mojang API client.
func NewMojangClient() *MojangClient {
	return &MojangClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    mojangAPIBase,
	}
}

// NewMojangClientWithBase is used by tests to point at a stub server.
func NewMojangClientWithBase(baseURL string) *MojangClient {
	c := NewMojangClient()
	c.baseURL = baseURL
	return c
}

// MojangProfile is the subset of the profile response we use. ID is the
// undashed 32-hex UUID; Name carries Mojang's canonical casing.
type MojangProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile resolves a username to its account profile.
func (c *MojangClient) Profile(username string) (*MojangProfile, error) {
	endpoint := fmt.Sprintf("%s/users/profiles/minecraft/%s", c.baseURL, url.PathEscape(username))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mojang request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	default:
		return nil, fmt.Errorf("mojang returned status %d for %s", resp.StatusCode, username)
	}

	var profile MojangProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decoding mojang response: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("mojang returned empty profile for %s", username)
	}
	return &profile, nil
}
