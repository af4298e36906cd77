package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/platform/httputil"
)

const verifyTextSchemaURL = "verify-text.json"

// verifyTextSchema is the contract of POST /verify/text bodies.
const verifyTextSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["lines", "submitted"],
  "additionalProperties": false,
  "properties": {
    "lines": {
      "type": "array",
      "maxItems": 2000,
      "items": {
        "type": "object",
        "required": ["content"],
        "additionalProperties": false,
        "properties": {
          "content": {"type": "string", "maxLength": 4000},
          "region": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "page": {"type": "integer", "minimum": 0},
              "left": {"type": "integer", "minimum": 0},
              "top": {"type": "integer", "minimum": 0},
              "width": {"type": "integer", "minimum": 0},
              "height": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    },
    "source": {"type": "string", "enum": ["NATIVE", "OCR", "native", "ocr"]},
    "quality": {"type": "string", "enum": ["native_text", "ocr_fallback", "merged", "image_ocr", "none"]},
    "submitted": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "full_name": {"type": "string", "maxLength": 256},
        "name": {"type": "string", "maxLength": 256},
        "university": {"type": "string", "maxLength": 256},
        "major": {"type": "string", "maxLength": 256},
        "gpa": {"type": "string", "maxLength": 32},
        "national_id": {"type": "string", "maxLength": 64},
        "degree": {"type": "string", "maxLength": 128}
      }
    }
  }
}`

var compiledTextSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(verifyTextSchemaURL, strings.NewReader(verifyTextSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(verifyTextSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// validateTextBody checks a raw /verify/text body against the schema.
func validateTextBody(body []byte) error {
	schema, err := compiledTextSchema()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "request schema unavailable")
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	if err := schema.Validate(doc); err != nil {
		return dErrors.New(dErrors.CodeValidation, schemaMessage(err))
	}
	return nil
}

// schemaMessage reduces a validation error to its most specific cause.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "request does not match schema"
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("request does not match schema at %s: %s", loc, ve.Message)
}

// checkSchema buffers the body, validates it and rewinds it for decoding.
// It writes the error response itself and reports whether to continue.
func (h *Handler) checkSchema(ctx context.Context, w http.ResponseWriter, r *http.Request, requestID string) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge, "request body too large"))
			return false
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body"))
		return false
	}
	if err := validateTextBody(body); err != nil {
		h.logger.WarnContext(ctx, "request schema validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return true
}
