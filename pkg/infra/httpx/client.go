package httpx

import "net/http"

// Client abstracts the HTTP transport used for provider calls.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
