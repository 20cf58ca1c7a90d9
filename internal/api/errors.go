package api

import (
	"errors"
	"net/http"

	qwerrs "github.com/jdholdren/quantumwatch/internal/errors"
	"github.com/jdholdren/quantumwatch/internal/pipeline"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// statusErr maps domain errors onto the status they're reported with.
// Anything unrecognized is passed through and ends up a 500.
func statusErr(err error) error {
	var sErr *qwerrs.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &sErr):
		return sErr
	case errors.Is(err, quantumwatch.ErrNotFound), errors.Is(err, pipeline.ErrUnknownStage):
		return qwerrs.E(err, http.StatusNotFound)
	case errors.Is(err, quantumwatch.ErrConflict), errors.Is(err, quantumwatch.ErrInFlight):
		return qwerrs.E(err, http.StatusConflict)
	case errors.Is(err, quantumwatch.ErrNoContent):
		return qwerrs.E(err, http.StatusBadRequest)
	case errors.Is(err, quantumwatch.ErrUnconfigured):
		return qwerrs.E(err, http.StatusServiceUnavailable)
	case errors.Is(err, quantumwatch.ErrUpstream):
		return qwerrs.E(err, http.StatusBadGateway)
	}

	return err
}
