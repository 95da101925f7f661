package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openHPI/velo/internal/translation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/storage"
)

func writeServerError(ctx context.Context, writer http.ResponseWriter, err error, errorCode dto.ErrorCode, status int) {
	sendJSON(ctx, writer, &dto.InternalServerError{Message: err.Error(), ErrorCode: errorCode}, status)
}

func writeInternalServerError(ctx context.Context, writer http.ResponseWriter, err error, errorCode dto.ErrorCode) {
	writeServerError(ctx, writer, err, errorCode, http.StatusInternalServerError)
}

func writeClientError(ctx context.Context, writer http.ResponseWriter, err error, status int) {
	sendJSON(ctx, writer, &dto.ClientError{Message: err.Error()}, status)
}

// writeError responds with the status code of the externally visible kind of err.
func writeError(ctx context.Context, writer http.ResponseWriter, err error) {
	kind := translation.Kind(err)
	entry := log.WithContext(ctx).WithError(err)
	switch kind {
	case dto.BadRequest, dto.NotFound:
		entry.Debug("Rejecting request")
		writeClientError(ctx, writer, err, kind.StatusCode())
	case dto.BadGateway:
		entry.Warn("Downstream service unreachable")
		writeServerError(ctx, writer, err, dto.ErrorDownstreamUnreachable, kind.StatusCode())
	default:
		entry.Error("Request failed")
		writeInternalServerError(ctx, writer, err, errorCodeOf(err))
	}
}

func errorCodeOf(err error) dto.ErrorCode {
	if errors.Is(err, storage.ErrAlreadyExists) {
		return dto.ErrorStorageInconsistent
	}
	return dto.ErrorUnknown
}

func sendJSON(ctx context.Context, writer http.ResponseWriter, content interface{}, httpStatusCode int) {
	response, err := json.Marshal(content)
	if err != nil {
		// cannot produce infinite recursive loop, since json.Marshal of dto.InternalServerError won't return an error
		writeInternalServerError(ctx, writer, err, dto.ErrorUnknown)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(httpStatusCode)
	if _, err = writer.Write(response); err != nil {
		log.WithError(err).WithContext(ctx).Error("Could not write JSON response")
	}
}
