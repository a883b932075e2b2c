package httputil

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Pagination holds the parsed OCPI list query parameters.
type Pagination struct {
	Offset   int
	Limit    int
	DateFrom *time.Time
	DateTo   *time.Time
}

// ParsePagination safely parses and validates the OCPI list query parameters
// offset, limit, date_from and date_to. The default limit is applied when the
// parameter is missing and the limit is capped at maxLimit.
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int) (Pagination, error) {
	var p Pagination

	// Parse offset query parameter (default: 0)
	offsetStr := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return p, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}
	p.Offset = offset

	// Parse limit query parameter, capped at maxLimit
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return p, fmt.Errorf("invalid limit parameter: must be a positive integer")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	p.Limit = limit

	// Parse optional date filters applied to last_updated
	if v := c.Query("date_from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, fmt.Errorf("invalid date_from parameter: must be an RFC3339 timestamp")
		}
		p.DateFrom = &ts
	}
	if v := c.Query("date_to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, fmt.Errorf("invalid date_to parameter: must be an RFC3339 timestamp")
		}
		p.DateTo = &ts
	}

	return p, nil
}

// SetPaginationHeaders writes the OCPI pagination response headers. When the
// returned page is not the last one, a Link header pointing at the next page
// is included.
func SetPaginationHeaders(c *gin.Context, p Pagination, totalCount int, isLastPage bool) {
	c.Header("X-Total-Count", strconv.Itoa(totalCount))
	c.Header("X-Limit", strconv.Itoa(p.Limit))

	if isLastPage {
		return
	}

	next, err := NextPageURL(c.Request.URL.String(), p.Offset+p.Limit, p.Limit)
	if err != nil {
		return
	}

	c.Header("Link", fmt.Sprintf("<%s>; rel=\"next\"", next))
}

// NextPageURL builds the URL of the next page for a given list URL.
func NextPageURL(rawURL string, offset, limit int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid list url: %w", err)
	}

	query := u.Query()
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	u.RawQuery = query.Encode()

	return u.String(), nil
}
