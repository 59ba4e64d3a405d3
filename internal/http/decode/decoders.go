// Package decode contains decoders for various HTTP artefacts
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/leg100/kvproxy/internal"
)

// Route schema decoder: caches structs, and safe for sharing.
var decoder *schema.Decoder

func init() {
	decoder = schema.NewDecoder()
	// Don't error if there are keys in the source map that are not present in
	// the destination struct.
	decoder.IgnoreUnknownKeys(true)
}

// Route decodes a mux route parameters (e.g. /foo/{bar}) into dst.
func Route(dst any, r *http.Request) error {
	// decoder only takes map[string][]string, not map[string]string
	vars := convertStrMapToStrSliceMap(mux.Vars(r))
	if err := decode(dst, vars); err != nil {
		return err
	}
	return nil
}

// JSON decodes an HTTP request's JSON body into dst. A JSON null leaves dst
// untouched.
func JSON(dst any, r *http.Request) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func decode(dst any, src map[string][]string) error {
	if err := decoder.Decode(dst, src); err != nil {
		// schema collects errors into a map, one per field
		var multi schema.MultiError
		if errors.As(err, &multi) {
			for _, fieldErr := range multi {
				var emptyField schema.EmptyFieldError
				if errors.As(fieldErr, &emptyField) {
					return &internal.MissingParameterError{Parameter: emptyField.Key}
				}
			}
		}
		return err
	}
	return nil
}

func convertStrMapToStrSliceMap(m map[string]string) map[string][]string {
	mm := make(map[string][]string, len(m))
	for k, v := range m {
		mm[k] = []string{v}
	}
	return mm
}
