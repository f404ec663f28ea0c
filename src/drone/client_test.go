package drone

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("drone1", "https://drone.example.com/", "/BitGo/repo/", "tok")

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.Name() != "drone1" {
		t.Errorf("Name() = %q, want drone1", client.Name())
	}
	if client.baseURL != "https://drone.example.com" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
	}
	if client.repo != "BitGo/repo" {
		t.Errorf("repo = %q, want BitGo/repo", client.repo)
	}
	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if client.httpClient.Timeout != 0 {
		t.Errorf("default Timeout = %v, want none", client.httpClient.Timeout)
	}
}

func TestClient_ListBuilds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/api/repos/BitGo/bitgo-microservices/builds" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("page = %q, want 3", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "" {
			t.Errorf("per_page = %q, want unset", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[` + gen1BuildJSON + `,` + gen2BuildJSON + `]`))
	}))
	defer server.Close()

	client := NewClient("drone1", server.URL, DefaultRepo, "test-token")

	builds, err := client.ListBuilds(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListBuilds() error = %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("len(builds) = %d, want 2", len(builds))
	}
	if builds[0].Number != 10 || builds[1].Number != 20 {
		t.Errorf("numbers = %d, %d, want 10, 20", builds[0].Number, builds[1].Number)
	}
}

func TestClient_ListBuilds_PageSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "50" {
			t.Errorf("per_page = %q, want 50", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient("drone2", server.URL, DefaultRepo, "tok", WithPageSize(50))
	builds, err := client.RecentBuilds(context.Background())
	if err != nil {
		t.Fatalf("RecentBuilds() error = %v", err)
	}
	if len(builds) != 0 {
		t.Errorf("len(builds) = %d, want 0", len(builds))
	}
}

func TestClient_GetBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/repos/BitGo/bitgo-microservices/builds/20" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(gen2BuildJSON))
	}))
	defer server.Close()

	client := NewClient("drone2", server.URL, DefaultRepo, "tok")

	build, err := client.GetBuild(context.Background(), 20)
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if build.Number != 20 {
		t.Errorf("Number = %d, want 20", build.Number)
	}
	if len(build.Stages) != 2 {
		t.Errorf("len(Stages) = %d, want 2", len(build.Stages))
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantIs   error
		wantText string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"message": "Unauthorized"}`,
			wantIs:   ErrAuthFailed,
			wantText: "status 401",
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"message": "Not Found"}`,
			wantIs:   ErrBuildNotFound,
			wantText: "status 404",
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `boom`,
			wantText: "status 500: boom",
		},
		{
			name:     "malformed payload",
			status:   http.StatusOK,
			body:     `{"id": 1, "number": 2}`,
			wantText: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient("drone1", server.URL, DefaultRepo, "tok")
			_, err := client.GetBuild(context.Background(), 2)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantText)
			}
			if !strings.HasPrefix(err.Error(), "drone1: get build 2") {
				t.Errorf("error = %q, want backend and build prefix", err)
			}
		})
	}
}

func TestClient_MalformedPayloadIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "number": 2, "status": "success"}]`))
	}))
	defer server.Close()

	client := NewClient("drone2", server.URL, DefaultRepo, "tok")
	_, err := client.ListBuilds(context.Background(), 1)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if decodeErr.Field != "event" {
		t.Errorf("Field = %q, want event", decodeErr.Field)
	}
	if !strings.HasPrefix(err.Error(), "drone2:") {
		t.Errorf("error = %q, want backend prefix", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient("drone1", url, DefaultRepo, "tok")
	if _, err := client.ListBuilds(context.Background(), 1); err == nil {
		t.Fatal("expected transport error, got nil")
	}
}
