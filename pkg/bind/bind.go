// Package bind decodes and validates a dashboard request body.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/pkg/validate"
)

var ErrEmptyBody = errors.New("request body is required")

// maxBodyBytes is MAX_BODY_BYTES, 64 KB unless configured.
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "65536"), 10, 64)
	if err != nil || n <= 0 {
		return 64 << 10
	}
	return n
}

// JSON decodes r.Body into dest and validates it.
// It returns (errs, nil) on validation failures and (nil, err) when the
// body is missing, malformed or too large.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil, ErrEmptyBody
		case errors.As(err, &maxErr):
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if errs = validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
