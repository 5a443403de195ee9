package catalog

import "net/http"

// Response is the uniform result envelope every catalog operation returns.
// Code follows HTTP-style semantics and is what the request layer re-exposes.
type Response struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(message string, data any) Response {
	return Response{Code: http.StatusOK, Status: "success", Message: message, Data: data}
}

func failure(code int, message string) Response {
	return Response{Code: code, Status: "error", Message: message}
}

func badRequest(message string) Response {
	return failure(http.StatusBadRequest, message)
}

func notFound(message string) Response {
	return failure(http.StatusNotFound, message)
}

func internalError(message string) Response {
	return failure(http.StatusInternalServerError, message)
}
