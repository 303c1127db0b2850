package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// mapping is the JSON document served by the mapping store:
// {"voices": {"name": {"audio_file": "...", "enabled": true}}}.
type mapping struct {
	Voices map[string]Entry `json:"voices"`
}

// FileFetcher reads the mapping from a JSON manifest on disk.
type FileFetcher struct {
	Path string
}

func (f FileFetcher) Fetch(_ context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read voice manifest: %w", err)
	}
	return decodeMapping(data)
}

// HTTPFetcher loads the mapping from a remote store.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context) (map[string]Entry, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build mapping request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice mapping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch voice mapping: unexpected status %s", resp.Status)
	}

	var doc mapping
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode voice mapping: %w", err)
	}
	return validateMapping(doc)
}

func decodeMapping(data []byte) (map[string]Entry, error) {
	var doc mapping
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode voice manifest: %w", err)
	}
	return validateMapping(doc)
}

func validateMapping(doc mapping) (map[string]Entry, error) {
	if len(doc.Voices) == 0 {
		return nil, fmt.Errorf("voice mapping contains no voices")
	}
	for name, e := range doc.Voices {
		if name == "" {
			return nil, fmt.Errorf("voice mapping contains empty name")
		}
		if e.AudioFile == "" {
			return nil, fmt.Errorf("voice %q has empty audio_file", name)
		}
	}
	return doc.Voices, nil
}
