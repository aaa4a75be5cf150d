package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ParsePageRequest reads page and limit. Missing values take the defaults;
// limit is capped at MaxPageSize. Pages whose offset does not fit an int are
// rejected.
func ParsePageRequest(values url.Values) (models.PageRequest, error) {
	page, err := positiveInt(values, "page", DefaultPage)
	if err != nil {
		return models.PageRequest{}, err
	}
	limit, err := positiveInt(values, "limit", DefaultPageSize)
	if err != nil {
		return models.PageRequest{}, err
	}
	limit = min(limit, MaxPageSize)
	if page-1 > math.MaxInt/limit {
		return models.PageRequest{}, apperr.Validation("page is out of range")
	}
	return models.PageRequest{Page: page, PageSize: limit}, nil
}

// ParseFeed reads the feed parameters: query, sortBy, sortType, userId, page, limit.
func ParseFeed(values url.Values) (models.VideoFilter, error) {
	page, err := ParsePageRequest(values)
	if err != nil {
		return models.VideoFilter{}, err
	}

	filter := models.VideoFilter{
		Search:      strings.TrimSpace(values.Get("query")),
		OwnerID:     strings.TrimSpace(values.Get("userId")),
		SortBy:      models.SortByCreatedAt,
		Direction:   models.SortDesc,
		PageRequest: page,
	}

	if raw := strings.TrimSpace(values.Get("sortBy")); raw != "" {
		switch field := models.SortField(raw); field {
		case models.SortByCreatedAt, models.SortByViews, models.SortByTitle:
			filter.SortBy = field
		default:
			return models.VideoFilter{}, apperr.Validation("sortBy must be one of createdAt, views, title")
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("sortType"))); raw != "" {
		switch dir := models.SortDirection(raw); dir {
		case models.SortAsc, models.SortDesc:
			filter.Direction = dir
		default:
			return models.VideoFilter{}, apperr.Validation("sortType must be asc or desc")
		}
	}

	return filter, nil
}

func positiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation(key + " must be a positive integer")
	}
	return n, nil
}
