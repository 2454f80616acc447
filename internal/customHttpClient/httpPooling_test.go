package customHttpClient

import (
	"net/http"
	"testing"

	"github.com/akolanti/RecallAPI/internal/config"
)

func TestNewPooledClient(t *testing.T) {
	c := NewPooledClient()
	if c != NewPooledClient() {
		t.Fatal("client is not shared")
	}
	transport, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if transport.MaxIdleConnsPerHost != config.MaxIdleConnsPerHost || transport.MaxIdleConns != config.MaxIdleConns {
		t.Errorf("pool limits not applied: %d/%d", transport.MaxIdleConns, transport.MaxIdleConnsPerHost)
	}
	if c.Timeout != 0 {
		t.Error("per-request deadlines come from the context, not the client")
	}
}
