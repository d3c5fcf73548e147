package models

// Result is the structured outcome the presentation layer renders for every core operation.
type Result struct {
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Message   string    `json:"message"`
	Warnings  []string  `json:"warnings,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Succeeded wraps data in a successful Result.
func Succeeded(message string, data any, warnings ...string) Result {
	return Result{Success: true, Message: message, Data: data, Warnings: warnings}
}

// Failed converts err into a failed Result.
func Failed(err error) Result {
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = "internal error"
	}
	return Result{Success: false, ErrorKind: kind, Rule: ViolatedRule(err), Message: msg}
}
