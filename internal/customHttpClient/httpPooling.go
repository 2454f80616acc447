package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/RecallAPI/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// NewPooledClient returns the client shared by the model and embedding SDKs so
// they reuse keep-alive connections.
func NewPooledClient() *http.Client {
	once.Do(func() {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = config.MaxIdleConns
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		transport.IdleConnTimeout = config.IdleConnTimeout
		client = &http.Client{Transport: transport}
	})
	return client
}
