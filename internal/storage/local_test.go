package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocal_UploadFetchDelete(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir(), "http://localhost:8080/")

	obj, err := l.Upload(ctx, []byte("%PDF-1.4 test"), "certificates/evt", "21CS0001.pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj.ID != "certificates/evt/21CS0001.pdf" {
		t.Errorf("ID = %q", obj.ID)
	}
	if obj.URL != "http://localhost:8080/uploads/certificates/evt/21CS0001.pdf" {
		t.Errorf("URL = %q", obj.URL)
	}

	data, err := l.Fetch(ctx, obj.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("Fetch returned %q", data)
	}

	if err := l.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := l.Fetch(ctx, obj.URL); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch after delete = %v, want ErrNotFound", err)
	}
	if err := l.Delete(ctx, obj.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestLocal_UploadStaysInsideDir(t *testing.T) {
	l := NewLocal(t.TempDir(), "http://api")
	obj, err := l.Upload(context.Background(), []byte("x"), "../../etc", "../passwd")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj.ID != "etc/passwd" {
		t.Errorf("ID = %q, want traversal stripped", obj.ID)
	}
}

func TestLocal_FetchRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	l := NewLocal(t.TempDir(), "http://api")
	data, err := l.Fetch(context.Background(), srv.URL+"/template.pdf")
	if err != nil || string(data) != "remote" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
	if _, err := l.Fetch(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing remote = %v, want ErrNotFound", err)
	}
}
