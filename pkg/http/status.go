package xhttp

import "github.com/valyala/fasthttp"

const (
	StatusNoContent           = fasthttp.StatusNoContent
	StatusNotFound            = fasthttp.StatusNotFound
	StatusMethodNotAllowed    = fasthttp.StatusMethodNotAllowed
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusInternalServerError = fasthttp.StatusInternalServerError
)

// StatusText returns the canonical reason phrase for a status code.
func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
