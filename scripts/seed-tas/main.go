package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type taFixture struct {
	TAID        string   `json:"ta_id"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	IsTF        bool     `json:"is_tf"`
	LabPerm     int      `json:"lab_perm"`
	Preferences []string `json:"preferences,omitempty"`
}

func main() {
	var (
		baseURL      string
		fixturesPath string
		timeout      time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&fixturesPath, "fixtures", "scripts/seed-tas/fixtures.json", "Path to JSON TA fixtures file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.Parse()

	data, err := os.ReadFile(fixturesPath)
	if err != nil {
		log.Fatalf("read fixtures: %v", err)
	}

	var fixtures []taFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		log.Fatalf("parse fixtures: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	for _, ta := range fixtures {
		if err := postJSON(client, baseURL+"/ta/create", ta); err != nil {
			log.Printf("create %s: %v", ta.TAID, err)
			failures++
			continue
		}
		if len(ta.Preferences) > 0 {
			payload := map[string]any{"ta_id": ta.TAID, "preferences": ta.Preferences}
			if err := postJSON(client, baseURL+"/ta/preferences", payload); err != nil {
				log.Printf("preferences %s: %v", ta.TAID, err)
				failures++
				continue
			}
		}
		log.Printf("seeded %s (%d preferences)", ta.TAID, len(ta.Preferences))
	}

	if failures > 0 {
		log.Fatalf("%d of %d fixtures failed", failures, len(fixtures))
	}
	log.Printf("seeded %d tas", len(fixtures))
}

func postJSON(client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(tail))
	}
	return nil
}
