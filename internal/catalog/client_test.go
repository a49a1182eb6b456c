package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/avlowe/cratedig/internal/domain"
	"github.com/avlowe/cratedig/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token", log.NullLogger()), server
}

func TestBrowseSendsRequestAndMapsHeader(t *testing.T) {
	var gotReq browseRequest
	var gotAuth string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/browse" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(browseResponse{Header: headerDTO{
			Title:      "Albums",
			ItemKey:    "albums",
			TotalCount: 42,
		}})
	})

	header, err := client.Browse(context.Background(), domain.BrowseOptions{RootReset: true})
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !gotReq.RootReset {
		t.Error("rootReset not sent")
	}
	if header.Title != "Albums" || header.TotalCount != 42 {
		t.Fatalf("header = %+v", header)
	}
}

func TestLoadPageQueryAndMapping(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("itemKey") != "albums" || q.Get("offset") != "10" || q.Get("count") != "2" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(itemsResponse{Items: []itemDTO{
			{Title: "Paranoid", Subtitle: "Black Sabbath", ItemKey: "k1", Hint: "list"},
			{Title: "Play Album", ItemKey: "k2", Hint: "actionList"},
		}})
	})

	items, err := client.LoadPage(context.Background(), "albums", 10, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "Paranoid" || items[0].Hint != domain.HintList {
		t.Fatalf("items[0] = %+v", items[0])
	}
	if !items[1].IsList() {
		t.Error("actionList item should be browsable")
	}
}

func TestUnauthorizedFailsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Browse(context.Background(), domain.BrowseOptions{RootReset: true})
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("server called %d times, want 1 (no retry on auth failure)", calls.Load())
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(browseResponse{Header: headerDTO{Title: "Root"}})
	})

	header, err := client.Browse(context.Background(), domain.BrowseOptions{RootReset: true})
	if err != nil {
		t.Fatal(err)
	}
	if header.Title != "Root" {
		t.Fatalf("header = %+v", header)
	}
	if calls.Load() != 2 {
		t.Fatalf("server called %d times, want 2", calls.Load())
	}
}

func TestBadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Browse(context.Background(), domain.BrowseOptions{ItemKey: "bogus"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Fatalf("server called %d times, want 1", calls.Load())
	}
}

func TestOfflineServer(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "t", log.NullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context cuts the retry loop short
	_, err := client.Browse(ctx, domain.BrowseOptions{RootReset: true})
	if err == nil {
		t.Fatal("expected an error from an unreachable server")
	}
}

func TestPlayFromCurrentPosition(t *testing.T) {
	var gotReq playRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/play" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.PlayFromCurrentPosition(context.Background(), "living-room"); err != nil {
		t.Fatal(err)
	}
	if gotReq.OutputTarget != "living-room" {
		t.Fatalf("outputTarget = %q", gotReq.OutputTarget)
	}
}

func TestFetchImageSniffsDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/image/cover-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("width") != "300" {
			t.Errorf("width not forwarded: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	payload, err := client.FetchImage(context.Background(), "cover-1", domain.ImageOptions{Width: 300, Height: 300})
	if err != nil {
		t.Fatal(err)
	}

	if payload.ContentType != "image/png" {
		t.Errorf("ContentType = %q", payload.ContentType)
	}
	if payload.Format != "png" || payload.Width != 3 || payload.Height != 2 {
		t.Fatalf("sniffed meta = %q %dx%d", payload.Format, payload.Width, payload.Height)
	}
}

func TestFetchImageUndecodableStillServed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("not an image"))
	})

	payload, err := client.FetchImage(context.Background(), "cover-2", domain.ImageOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if payload.Format != "" {
		t.Fatalf("Format = %q, want empty for undecodable payload", payload.Format)
	}
	if string(payload.Bytes) != "not an image" {
		t.Fatal("payload bytes altered")
	}
}
