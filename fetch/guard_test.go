package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"
)

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"::ffff:127.0.0.1", true},
		{"93.184.216.34", false},
		{"2606:4700::1111", false},
	}
	for _, tt := range tests {
		if got := isPrivate(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("isPrivate(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestCheckPublic_Literal(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"http://127.0.0.1/", "http://[::1]:8080/x", "http://169.254.169.254/latest"} {
		u, _ := url.Parse(raw)
		if err := CheckPublic(ctx, u); !errors.Is(err, ErrPrivate) {
			t.Errorf("CheckPublic(%s): got %v, want ErrPrivate", raw, err)
		}
	}
	u, _ := url.Parse("https://93.184.216.34/")
	if err := CheckPublic(ctx, u); err != nil {
		t.Errorf("public literal: %v", err)
	}
}

func TestHTTP_BlockPrivate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<p>internal</p>"))
	}))
	defer srv.Close()

	f := NewHTTP(HTTPConfig{BlockPrivate: true})
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrPrivate) {
		t.Errorf("Fetch: got %v, want ErrPrivate", err)
	}

	// The dialer guard holds even when the pre-check is skipped.
	tr := guardedClient(0)
	if _, err := tr.Get(srv.URL); !errors.Is(err, ErrPrivate) {
		t.Errorf("guarded client: got %v, want ErrPrivate", err)
	}
}

func TestBrowser_BlockPrivate(t *testing.T) {
	b := NewBrowser(BrowserConfig{BlockPrivate: true})
	defer b.Close()
	if _, err := b.Fetch(context.Background(), "http://127.0.0.1:9/"); !errors.Is(err, ErrPrivate) {
		t.Errorf("Fetch: got %v, want ErrPrivate", err)
	}
}
