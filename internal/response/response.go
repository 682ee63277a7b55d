package response

import "github.com/yama-lei/plantodo/internal"

type APIResponse struct {
	Data  interface{}        `json:"data,omitempty"`
	Meta  map[string]any     `json:"meta,omitempty"`
	Error *internal.AppError `json:"error,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta, Error: nil}
}

func BadRequest(msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(400, msg)}
}

func InternalError(msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(500, msg)}
}

func NotFound(msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(404, msg)}
}

func NewAppError(status int, msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(status, msg)}
}

// FromError maps an engine error to the envelope using its kind.
func FromError(err error) (int, APIResponse) {
	switch internal.KindOf(err) {
	case internal.KindValidation:
		return 400, BadRequest(err.Error())
	case internal.KindNotFound:
		return 404, NotFound(err.Error())
	default:
		return 500, InternalError(err.Error())
	}
}
