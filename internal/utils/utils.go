package utils

import (
	"encoding/json"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/errors"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func GetPaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(crud.DefaultPerPage)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > crud.MaxPerPage {
		pageSize = crud.DefaultPerPage
	}

	return page, pageSize
}

// GetListQuery reads page, per_page, order_by and a JSON "filters" object
// from the query string.
func GetListQuery(c *gin.Context) (crud.Query, error) {
	page, perPage := GetPaginationParams(c)
	q := crud.Query{Page: page, PerPage: perPage, OrderBy: c.Query("order_by")}

	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Filters); err != nil {
			return q, errors.BadRequest("filters must be a JSON object", err)
		}
	}
	return q, nil
}

// ParseID reads a uint64 path parameter.
func ParseID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, errors.BadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// CurrentUserID returns the id the auth middleware stored on the context.
func CurrentUserID(c *gin.Context) (uint64, error) {
	id, ok := c.Get("user_id")
	if !ok {
		return 0, errors.Unauthorized("user not found", nil)
	}
	return id.(uint64), nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks struct tags on v and reports failures as VALIDATION_FAILED.
func Validate(v any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(v); err != nil {
		return errors.NewValidationError(err)
	}
	return nil
}
