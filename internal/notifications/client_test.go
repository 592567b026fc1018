package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidredact/internal/notifications"
	"vidredact/internal/services"
	"vidredact/internal/testsupport"
)

func TestNewClientReturnsNoopWithoutBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := notifications.NewClient(cfg)
	if _, ok := client.(notifications.Noop); !ok {
		t.Fatalf("expected noop client, got %T", client)
	}
	proceed, err := client.Preflight(context.Background(), "M1")
	if err != nil || !proceed {
		t.Fatalf("expected noop preflight to proceed, got %v %v", proceed, err)
	}
	recipient, err := client.Complete(context.Background(), "M1")
	if err != nil || recipient != nil {
		t.Fatalf("expected no recipient, got %+v %v", recipient, err)
	}
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		proceed bool
	}{
		{name: "proceed", body: "1", proceed: true},
		{name: "proceed with newline", body: "1\n", proceed: true},
		{name: "abandoned", body: "0", proceed: false},
		{name: "anything else", body: "deleted", proceed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery, gotMethod, gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.Query().Get("worknum")
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := notifications.NewHTTPClient(server.URL, time.Second)
			proceed, err := client.Preflight(context.Background(), "M001")
			if err != nil {
				t.Fatalf("Preflight: %v", err)
			}
			if proceed != tt.proceed {
				t.Fatalf("expected proceed=%v, got %v", tt.proceed, proceed)
			}
			if gotMethod != http.MethodGet || gotPath != "/updateprocess" || gotQuery != "M001" {
				t.Fatalf("unexpected request %s %s worknum=%s", gotMethod, gotPath, gotQuery)
			}
		})
	}
}

func TestPreflightTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := notifications.NewHTTPClient(server.URL, time.Second)
	if _, err := client.Preflight(context.Background(), "M1"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCompleteParsesRecipient(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		email string
	}{
		{name: "no recipient", body: "0"},
		{name: "recipient", body: `{"email":"a@example.com","name":"Ana"}`, email: "a@example.com"},
		{name: "blank email", body: `{"email":"","name":"Ana"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/finishprocess" {
					http.Error(w, "unexpected", http.StatusBadRequest)
					return
				}
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			recipient, err := notifications.NewHTTPClient(server.URL, time.Second).Complete(context.Background(), "P2")
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if tt.email == "" {
				if recipient != nil {
					t.Fatalf("expected no recipient, got %+v", recipient)
				}
				return
			}
			if recipient == nil || recipient.Email != tt.email || recipient.Name != "Ana" {
				t.Fatalf("unexpected recipient %+v", recipient)
			}
		})
	}
}

func TestCompleteRejectsGarbage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer server.Close()

	if _, err := notifications.NewHTTPClient(server.URL, time.Second).Complete(context.Background(), "P2"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSendEmailPostsJSON(t *testing.T) {
	var got notifications.Recipient
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sendemail" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"status":"sent"}`)
	}))
	defer server.Close()

	err := notifications.NewHTTPClient(server.URL+"/", time.Second).SendEmail(context.Background(), notifications.Recipient{Email: "b@example.com", Name: "Bo"})
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if got.Email != "b@example.com" || got.Name != "Bo" || contentType != "application/json" {
		t.Fatalf("unexpected payload %+v (%s)", got, contentType)
	}
}

func TestSendEmailReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "smtp down", http.StatusBadGateway)
	}))
	defer server.Close()

	err := notifications.NewHTTPClient(server.URL, time.Second).SendEmail(context.Background(), notifications.Recipient{Email: "c@example.com"})
	if err == nil || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
