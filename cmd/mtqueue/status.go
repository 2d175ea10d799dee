package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

func runStatus(addr string) error {
	resp, err := http.Get(strings.TrimRight(addr, "/") + "/status")
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status request failed: %s", strings.TrimSpace(string(body)))
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
