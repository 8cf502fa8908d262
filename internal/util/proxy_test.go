package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure-proxy.internal:3129", "localhost, .corp.example, 10.0.0.1:8080")

	tests := []struct {
		url  string
		want string
	}{
		{url: "http://api.exa.ai/search", want: "http://proxy.internal:3128"},
		{url: "https://api.exa.ai/search", want: "http://secure-proxy.internal:3129"},
		{url: "http://localhost:6333/collections", want: ""},
		{url: "https://qdrant.corp.example/collections", want: ""},
		{url: "http://10.0.0.1/", want: ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodGet, tt.url, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s) error: %v", tt.url, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.url, gotStr, tt.want)
		}
	}
}

func TestNewProxyFunc_NoConfig(t *testing.T) {
	proxy := NewProxyFunc("", "", "")
	if proxy == nil {
		t.Fatal("expected environment proxy function")
	}
}
