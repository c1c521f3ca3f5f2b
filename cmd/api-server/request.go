package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/model"
)

const _maxPageSize = 100

func idFromURL(r *http.Request, key string) (model.ID, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return model.ID(id), nil
}

func userIDFromRequest(r *http.Request) (model.ID, error) {
	return idFromURL(r, "userId")
}

func orderIDFromRequest(r *http.Request) (model.ID, error) {
	return idFromURL(r, "orderId")
}

func responseIDFromRequest(r *http.Request) (model.ID, error) {
	return idFromURL(r, "responseId")
}

func creditIDFromRequest(r *http.Request) (model.ID, error) {
	return idFromURL(r, "creditId")
}

func optionalIDQueryParams(r *http.Request, key string) (*model.ID, error) {
	val, ok := r.URL.Query().Get(key), r.URL.Query().Has(key)
	if !ok || val == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid query parameter %s", key)
	}
	ref := model.ID(id)
	return &ref, nil
}

func optionalBoolQueryParams(r *http.Request, key string) (*bool, error) {
	val, ok := r.URL.Query().Get(key), r.URL.Query().Has(key)
	if !ok || val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("invalid query parameter %s", key)
	}
	return &b, nil
}

func boolQueryParams(r *http.Request, key string) (bool, error) {
	b, err := optionalBoolQueryParams(r, key)
	if err != nil || b == nil {
		return false, err
	}
	return *b, nil
}

func defaultIntQueryParams(r *http.Request, key string, def int) int {
	val, ok := r.URL.Query().Get(key), r.URL.Query().Has(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}

func findOptionsFromRequest(r *http.Request) database.FindOptions {
	limit := defaultIntQueryParams(r, "limit", 0)
	offset := defaultIntQueryParams(r, "offset", 0)

	if limit < 0 {
		limit = 0
	}
	if limit > _maxPageSize {
		limit = _maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return database.FindOptions{Limit: uint64(limit), Offset: uint64(offset)}
}
