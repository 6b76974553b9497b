package response

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result is an explicit handler result: a body with a status and optional headers.
// Handlers build it with Status or With.
type Result struct {
	Body   any
	Code   int
	Header http.Header
}

// Status pairs body with a status code.
func Status(body any, code int) Result {
	return Result{Body: body, Code: code}
}

// With pairs body with a status code and headers.
func With(body any, code int, header http.Header) Result {
	return Result{Body: body, Code: code, Header: header}
}

// JSON forces JSON encoding of v, even for strings and byte slices.
func JSON(v any) Result {
	return Result{Body: jsonValue{v}, Code: http.StatusOK}
}

// Text returns a text/plain result.
func Text(s string, code int) Result {
	return Result{Body: s, Code: code}
}

// HTML returns a text/html result.
func HTML(s string, code int) Result {
	return Result{
		Body:   s,
		Code:   code,
		Header: http.Header{"Content-Type": []string{ContentTypeHTML}},
	}
}

// Redirect returns a redirect to url. code defaults to 302 Found.
func Redirect(url string, code ...int) Result {
	status := http.StatusFound
	if len(code) > 0 && code[0] > 0 {
		status = code[0]
	}
	return Result{
		Body:   "",
		Code:   status,
		Header: http.Header{"Location": []string{url}},
	}
}

type jsonValue struct{ v any }

// Encode serializes a bare handler value and reports its content type.
// Strings are text, byte slices are binary, everything else is JSON.
func Encode(v any) ([]byte, string, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), ContentTypeText, nil
	case []byte:
		return b, ContentTypeBinary, nil
	case json.RawMessage:
		return b, ContentTypeJSON, nil
	case jsonValue:
		return marshal(b.v)
	default:
		return marshal(v)
	}
}

// Normalize converts a handler result into a Response.
//
//   - *Response and Response are used as is
//   - Result applies its status and headers over the encoded body
//   - any other non-nil value becomes a 200 response via Encode
//
// Content-Type from the result headers wins over the inferred one.
func Normalize(result any) (*Response, error) {
	switch r := result.(type) {
	case nil:
		return nil, ErrNilResponse
	case *Response:
		if r == nil {
			return nil, ErrNilResponse
		}
		r.ensureHeader()
		return r, nil
	case Response:
		r.ensureHeader()
		return &r, nil
	case Result:
		return normalizeResult(r)
	case *Result:
		if r == nil {
			return nil, ErrNilResponse
		}
		return normalizeResult(*r)
	}

	body, contentType, err := Encode(result)
	if err != nil {
		return nil, err
	}
	resp := New(http.StatusOK, body)
	resp.Header.Set("Content-Type", contentType)
	return resp, nil
}

func normalizeResult(r Result) (*Response, error) {
	code := r.Code
	if code == 0 {
		code = http.StatusOK
	}

	resp := New(code, nil)
	for k, vs := range r.Header {
		resp.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	if r.Body == nil {
		return resp, nil
	}

	body, contentType, err := Encode(r.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	if len(body) > 0 && resp.Header.Get("Content-Type") == "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp, nil
}

func marshal(v any) ([]byte, string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("response: encode json: %w", err)
	}
	return body, ContentTypeJSON, nil
}
