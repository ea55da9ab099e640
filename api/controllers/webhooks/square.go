package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/brightcart/storefront-backend/api/responses"
	squarewebhook "github.com/brightcart/storefront-backend/internal/webhooks/square"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

type signingConfig interface {
	SigningSecret() string
	NotificationURL() string
}

// Square receives payment notifications. The signature check runs before any
// parsing so a forged payload can never reach reconciliation; redeliveries of
// an already processed event are acknowledged without re-applying effects.
func Square(svc squarewebhook.Service, signing signingConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if signing == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook signing config unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(squarewebhook.SignatureHeader)
		if !squarewebhook.VerifySignature(signing.SigningSecret(), signing.NotificationURL(), payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "webhook signature invalid"))
			return
		}

		var event squarewebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		outcome, err := svc.Process(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
