package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lamaai/lama-api/api/middleware"
	"github.com/lamaai/lama-api/api/responses"
	"github.com/lamaai/lama-api/api/validators"
	"github.com/lamaai/lama-api/internal/chats"
	"github.com/lamaai/lama-api/internal/userchats"
	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
	"github.com/lamaai/lama-api/pkg/logger"
)

func ChatCreate(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chats service unavailable"))
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		body, err := validators.DecodeJSON[chats.CreateRequest](w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.Create(r.Context(), caller, body.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, chats.CreateResponse{ID: id})
	}
}

// ChatList returns the caller's chat index, [] when they have none.
func ChatList(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chats service unavailable"))
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		entries, err := svc.ListForUser(r.Context(), caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []userchats.Entry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// ChatDetail answers null for chats that are missing or owned by someone else.
func ChatDetail(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chats service unavailable"))
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		chatID := chi.URLParam(r, "id")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithChatID(ctx, chatID)
		}

		session, err := svc.Get(ctx, caller, chatID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func ChatAppend(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chats service unavailable"))
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		chatID := chi.URLParam(r, "id")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithChatID(ctx, chatID)
		}

		body, err := validators.DecodeJSON[chats.AppendRequest](w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Append(ctx, caller, chatID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
