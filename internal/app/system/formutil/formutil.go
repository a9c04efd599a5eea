// internal/app/system/formutil/formutil.go

// Package formutil reads request input the same way whether it arrives as
// JSON, a url-encoded form or a multipart upload, so handlers serve API
// clients and browser forms with one code path.
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
)

// DefaultMaxMemory is the multipart memory budget; larger parts spill to
// temporary files.
const DefaultMaxMemory = 32 << 20

// ErrBadBody is returned for malformed JSON or form bodies.
var ErrBadBody = errors.New("malformed request body")

// Values holds the parsed fields and files of one request.
type Values struct {
	fields map[string][]string
	files  map[string][]*multipart.FileHeader
}

// Parse reads r's body. JSON objects become fields (arrays become repeated
// values, numbers and booleans their text form). Forms are parsed with
// the standard library; multipart forms keep their files.
func Parse(r *http.Request) (Values, error) {
	v := Values{fields: map[string][]string{}, files: map[string][]*multipart.FileHeader{}}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		if r.Body == nil || r.ContentLength == 0 {
			return v, nil
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return v, fmt.Errorf("%w: %v", ErrBadBody, err)
		}
		for k, raw := range body {
			v.fields[k] = flatten(raw)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
			return v, fmt.Errorf("%w: %v", ErrBadBody, err)
		}
		for k, vals := range r.MultipartForm.Value {
			v.fields[k] = vals
		}
		for k, fhs := range r.MultipartForm.File {
			v.files[k] = fhs
		}
		for k, vals := range r.URL.Query() {
			if _, ok := v.fields[k]; !ok {
				v.fields[k] = vals
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return v, fmt.Errorf("%w: %v", ErrBadBody, err)
		}
		for k, vals := range r.Form {
			v.fields[k] = vals
		}
	}
	return v, nil
}

func flatten(raw any) []string {
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case bool:
		return []string{strconv.FormatBool(t)}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, flatten(e)...)
		}
		return out
	default:
		b, _ := json.Marshal(t)
		return []string{string(b)}
	}
}

// Has reports whether name was sent at all, even empty.
func (v Values) Has(name string) bool {
	_, ok := v.fields[name]
	return ok
}

// Get returns the first value of name, trimmed.
func (v Values) Get(name string) string {
	if vals := v.fields[name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// List returns every value of name. A single comma-separated value is
// split, so "a,b" and ["a","b"] read the same. Entries are trimmed and
// de-duplicated.
func (v Values) List(name string) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range v.fields[name] {
		for _, p := range normalize.SplitList(raw) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Float parses name as a float. ok is false when missing or malformed.
func (v Values) Float(name string) (f float64, ok bool) {
	s := v.Get(name)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Int parses name as an int. ok is false when missing or malformed.
func (v Values) Int(name string) (n int, ok bool) {
	s := v.Get(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Bool reads name as a checkbox or JSON boolean.
func (v Values) Bool(name string) bool {
	switch strings.ToLower(v.Get(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Files returns the uploaded files under name.
func (v Values) Files(name string) []*multipart.FileHeader {
	return v.files[name]
}

// File returns the first uploaded file under name, or nil.
func (v Values) File(name string) *multipart.FileHeader {
	if fhs := v.files[name]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

// Echo returns the submitted values of names for re-display after a
// validation failure. Secrets should not be listed.
func (v Values) Echo(names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v.Has(n) {
			out[n] = strings.Join(v.fields[n], ",")
		}
	}
	return out
}
