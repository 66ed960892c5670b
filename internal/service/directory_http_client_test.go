package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestDirectoryClientExists(t *testing.T) {
	known := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/doctors/"+known.String() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewDirectoryHTTPClient(server.URL, server.Client())
	ctx := context.Background()

	exists, err := client.Exists(ctx, known)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("known doctor reported missing")
	}

	exists, err = client.Exists(ctx, uuid.New())
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("unknown doctor reported present")
	}
}

func TestDirectoryClientExistsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewDirectoryHTTPClient(server.URL, server.Client())
	if _, err := client.Exists(context.Background(), uuid.New()); err == nil {
		t.Fatal("5xx from the directory must surface as an error")
	}
}

func TestDirectoryClientListBySpecialty(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("speciality")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"` + first.String() + `"},{"id":"` + second.String() + `"},{"name":"no id"}]`))
	}))
	defer server.Close()

	client := NewDirectoryHTTPClient(server.URL, server.Client())
	ids, err := client.ListBySpecialty(context.Background(), "cardiology")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "cardiology" {
		t.Errorf("speciality query = %q", gotQuery)
	}
	if len(ids) != 2 || ids[0] != first || ids[1] != second {
		t.Errorf("ids = %v, entries without an id must be dropped", ids)
	}
}

func TestDirectoryClientNoBaseURL(t *testing.T) {
	client := NewDirectoryHTTPClient("", http.DefaultClient)
	if _, err := client.Exists(context.Background(), uuid.New()); err == nil {
		t.Error("empty base url must fail")
	}
	if _, err := client.ListBySpecialty(context.Background(), ""); err == nil {
		t.Error("empty base url must fail")
	}
}
