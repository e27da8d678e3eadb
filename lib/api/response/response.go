package response

import (
	"beatwise/entity"
	"beatwise/lib/clock"
)

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	ErrorKind     string      `json:"error_kind,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// Fail reports a domain error with its stable kind.
func Fail(err error) Response {
	r := Error(err.Error())
	r.ErrorKind = string(entity.KindOf(err))
	return r
}
