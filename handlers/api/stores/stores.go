package stores

import (
	"errors"
	"io"
	"net/http"
	"storefront/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	ErrorResponse struct {
		Error string `json:"error"`
	}

	// StoreRequest is the request body of create and update.
	StoreRequest struct {
		core.StoreInput
	}
)

func (body *StoreRequest) Bind(r *http.Request) error {
	return body.Validate()
}

func HandleList(repo core.StoreRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stores, err := repo.List(r.Context())
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, stores)
	}
}

func HandleCreate(repo core.StoreRepository, events core.StorePublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		store, err := repo.Create(r.Context(), data.StoreInput)
		if err != nil {
			renderError(w, r, err)
			return
		}
		events.Publish(core.EventStoreCreated, store)

		render.Status(r, http.StatusOK)
		render.JSON(w, r, store)
	}
}

func HandleGet(repo core.StoreRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		store, err := repo.FindID(r.Context(), id)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, store)
	}
}

func HandleUpdate(repo core.StoreRepository, events core.StorePublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if _, err := repo.FindID(r.Context(), id); err != nil {
			renderError(w, r, err)
			return
		}
		data, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		store, err := repo.Update(r.Context(), id, data.StoreInput)
		if err != nil {
			renderError(w, r, err)
			return
		}
		events.Publish(core.EventStoreUpdated, store)

		render.Status(r, http.StatusOK)
		render.JSON(w, r, store)
	}
}

func HandleDelete(repo core.StoreRepository, events core.StorePublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		store, err := repo.Delete(r.Context(), id)
		if err != nil {
			renderError(w, r, err)
			return
		}
		events.Publish(core.EventStoreDeleted, store)
		render.NoContent(w, r)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// decodeRequest reads the body as JSON whatever its content type.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*StoreRequest, bool) {
	data := &StoreRequest{}
	if err := render.DecodeJSON(r.Body, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		logrus.WithError(err).Debug("Failed to decode store request")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return nil, false
	}
	if err := data.Bind(r); err != nil {
		renderError(w, r, err)
		return nil, false
	}
	return data, true
}

// renderError maps repository and validation errors to a response. Not-found
// responses carry no body.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidID):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrValidation):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
	default:
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Store request failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal server error"})
	}
}
