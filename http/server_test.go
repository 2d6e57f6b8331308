package http

import (
	"net/http"
	"testing"

	"irisforest/config"
)

func TestNewServerUsesConfiguredAddr(t *testing.T) {
	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8000}, http.NewServeMux(), nil)
	if got := server.Addr(); got != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr %s", got)
	}

	server = NewServer(config.ServerConfig{Host: "::1", Port: 9000}, http.NewServeMux(), nil)
	if got := server.Addr(); got != "[::1]:9000" {
		t.Fatalf("unexpected addr %s", got)
	}
}
