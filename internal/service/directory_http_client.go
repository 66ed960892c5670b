package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DoctorDirectory is the external collaborator that owns doctor profiles.
// The availability core only ever consults it through identifiers.
type DoctorDirectory interface {
	Exists(ctx context.Context, doctorID uuid.UUID) (bool, error)
	ListBySpecialty(ctx context.Context, specialty string) ([]uuid.UUID, error)
}

type DirectoryHTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDirectoryHTTPClient(baseURL string, httpClient *http.Client) *DirectoryHTTPClient {
	return &DirectoryHTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *DirectoryHTTPClient) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	if c.baseURL == "" {
		return false, ErrInvalidInput
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/doctors/"+doctorID.String(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("doctor directory unexpected status: %d", resp.StatusCode)
	}
}

type directoryDoctor struct {
	ID uuid.UUID `json:"id"`
}

func (c *DirectoryHTTPClient) ListBySpecialty(ctx context.Context, specialty string) ([]uuid.UUID, error) {
	if c.baseURL == "" {
		return nil, ErrInvalidInput
	}

	endpoint := c.baseURL + "/doctors"
	if specialty != "" {
		endpoint += "?speciality=" + url.QueryEscape(specialty)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doctor directory unexpected status: %d", resp.StatusCode)
	}

	var doctors []directoryDoctor
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&doctors); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(doctors))
	for _, doctor := range doctors {
		if doctor.ID != uuid.Nil {
			ids = append(ids, doctor.ID)
		}
	}
	return ids, nil
}

func DefaultDirectoryHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
