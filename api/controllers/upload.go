package controllers

import (
	"net/http"

	"github.com/lamaai/lama-api/api/responses"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/imagekit"
	"github.com/lamaai/lama-api/pkg/logger"
)

// UploadSigner issues client-side upload credentials.
type UploadSigner interface {
	AuthenticationParameters() (imagekit.AuthParams, error)
}

// UploadAuth returns short-lived parameters the browser uses to upload images
// straight to ImageKit. The ImageKit SDK reads them from the top level of the
// body, so they are not wrapped in the data envelope.
func UploadAuth(signer UploadSigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if signer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload signer unavailable"))
			return
		}
		params, err := signer.AuthenticationParameters()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign upload"))
			return
		}
		responses.WriteJSON(w, http.StatusOK, params)
	}
}
