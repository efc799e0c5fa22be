package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/middleware"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/apperr"
)

// queryFloat parses a float query parameter. A missing optional parameter
// yields def.
func queryFloat(q url.Values, name string, required bool, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		if required {
			return 0, apperr.InvalidInput(name, "is required")
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.InvalidInput(name, "must be a number")
	}
	return v, nil
}

// queryFloatPtr parses an optional float query parameter, returning nil
// when it is absent.
func queryFloatPtr(q url.Values, name string) (*float64, error) {
	if strings.TrimSpace(q.Get(name)) == "" {
		return nil, nil
	}
	v, err := queryFloat(q, name, true, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryInt parses an integer query parameter. A missing optional parameter
// yields def.
func queryInt(q url.Values, name string, required bool, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		if required {
			return 0, apperr.InvalidInput(name, "is required")
		}
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidInput(name, "must be an integer")
	}
	return v, nil
}

// fail logs err and writes its problem response. Client errors are logged
// at debug level.
func fail(logger zerolog.Logger, w http.ResponseWriter, r *http.Request, err error, msg string) {
	event := logger.Debug()
	if response.StatusFor(err) >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("request_kind", string(middleware.GetRequestKind(r.Context()))).
		Msg(msg)
	response.FromError(w, r, err)
}
