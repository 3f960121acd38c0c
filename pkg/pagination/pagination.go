package pagination

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps the page size a client may request.
const MaxLimit = 500

// Params holds the optional window requested on a list endpoint. A zero
// Limit means the whole collection.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads the "limit" and "offset" query parameters. Absent
// parameters are zero; malformed or negative ones are a 400.
func FromContext(c echo.Context) (Params, error) {
	limit, err := intParam(c, "limit")
	if err != nil {
		return Params{}, err
	}
	offset, err := intParam(c, "offset")
	if err != nil {
		return Params{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Limit: limit, Offset: offset}, nil
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}

// Paged reports whether the client asked for a window.
func (p Params) Paged() bool {
	return p.Limit > 0 || p.Offset > 0
}

// Slice returns the part of items covered by p. The result is never nil
// when items is not nil.
func Slice[T any](items []T, p Params) []T {
	start := p.Offset
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if p.Limit > 0 && start+p.Limit < end {
		end = start + p.Limit
	}
	return items[start:end]
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// LinkHeader builds an RFC 8288 Link header value with next and prev
// relations for basePath, or "" when there is neither.
func (p Params) LinkHeader(basePath string, total int) string {
	var links []string
	if p.HasNext(total) {
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="next"`, basePath, p.NextOffset(), p.Limit))
	}
	if p.HasPrevious() {
		prev := fmt.Sprintf(`<%s?offset=%d`, basePath, p.PreviousOffset())
		if p.Limit > 0 {
			prev += fmt.Sprintf("&limit=%d", p.Limit)
		}
		links = append(links, prev+`>; rel="prev"`)
	}
	return strings.Join(links, ", ")
}

// SetHeaders writes X-Total-Count and, when paging, the Link header.
func SetHeaders(c echo.Context, p Params, total int) {
	h := c.Response().Header()
	h.Set("X-Total-Count", strconv.Itoa(total))
	if link := p.LinkHeader(c.Request().URL.Path, total); link != "" {
		h.Set("Link", link)
	}
}
