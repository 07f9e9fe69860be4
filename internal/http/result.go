package httpapi

import "github.com/gevengood/red-esperanza-backend/internal/service"

// Result is the response envelope of every /api/v1 endpoint.
//   - success: outcome
//   - data: payload on success
//   - error: user-facing message on failure
//   - message: optional confirmation text
//   - pagination: page metadata of paged lists
//   - detail: internal error chain, non-production only
type Result struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Message    string              `json:"message,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
	Detail     string              `json:"detail,omitempty"`
}

func Ok(data any) Result {
	return Result{Success: true, Data: data}
}

func OkMessage(data any, message string) Result {
	return Result{Success: true, Data: data, Message: message}
}

func Fail(message string) Result {
	return Result{Success: false, Error: message}
}
