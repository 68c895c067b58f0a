package main

import (
	"bytes"
	"datepoll/internal/config"
	"datepoll/internal/models"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseBallot(t *testing.T) {
	tests := []struct {
		name    string
		scores  []string
		want    map[string]int
		wantErr bool
	}{
		{name: "no scores", scores: nil, want: map[string]int{}},
		{name: "several", scores: []string{"1=2", " 3 = 0 "}, want: map[string]int{"1": 2, "3": 0}},
		{name: "missing separator", scores: []string{"12"}, wantErr: true},
		{name: "bad candidate", scores: []string{"x=1"}, wantErr: true},
		{name: "bad score", scores: []string{"1=yes"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBallot("rei", tt.scores)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBallot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Name != "rei" || len(got.Vote) != len(tt.want) {
				t.Fatalf("unexpected ballot %+v", got)
			}
			for k, v := range tt.want {
				if got.Vote[k] != v {
					t.Errorf("score for %s = %d, want %d", k, got.Vote[k], v)
				}
			}
		})
	}
}

func TestPrintEvent(t *testing.T) {
	from := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)
	ev := models.Event{
		ID:          "e1",
		Title:       "Dinner",
		Description: "somewhere nice",
		Dates: []models.DateCandidate{
			{ID: 1, From: from, To: &to},
			{ID: 2, From: from.AddDate(0, 0, 1)},
		},
		Votes: []models.VoteRecord{
			{ID: 1, Name: "rei", Vote: map[string]int{"1": 2, "2": 1}},
		},
	}

	var buf bytes.Buffer
	printEvent(&buf, ev)
	out := buf.String()

	for _, want := range []string{
		"Dinner (e1)",
		"somewhere nice",
		"[1] 2024-05-01 (Wed) 19:00 - 21:00  score 2 from 1",
		"[2] 2024-05-02 (Thu) 19:00  score 1 from 1",
		"rei: 1=yes 2=maybe",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAuthFlowConfigFromFile(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("DATEPOLL_BACKEND", "")

	path := filepath.Join(t.TempDir(), "datepoll.yaml")
	yaml := "firestore:\n  client_id: file-id\n  client_secret: file-secret\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}

	oauthConfig, err := authFlowConfig(cfg)
	if err != nil {
		t.Fatalf("authFlowConfig failed: %v", err)
	}
	if oauthConfig.ClientID != "file-id" || oauthConfig.ClientSecret != "file-secret" {
		t.Errorf("client credentials not taken from config: %q/%q", oauthConfig.ClientID, oauthConfig.ClientSecret)
	}

	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	cfg, err = config.Load(path)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	if oauthConfig, err = authFlowConfig(cfg); err != nil || oauthConfig.ClientID != "env-id" {
		t.Errorf("environment should override the file, got %v (err %v)", oauthConfig, err)
	}
}
