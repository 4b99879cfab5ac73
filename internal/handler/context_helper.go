package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

// expectedVersion picks the version the client last read. A version in the
// body wins over the If-Match header; neither means the write is unchecked.
func expectedVersion(c *gin.Context, body *int) (*int, error) {
	if body != nil {
		return body, nil
	}
	header := strings.TrimSpace(c.GetHeader("If-Match"))
	if header == "" || header == "*" {
		return nil, nil
	}
	raw := strings.Trim(strings.TrimPrefix(header, "W/"), `"`)
	version, err := strconv.Atoi(raw)
	if err != nil || version < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "If-Match must carry a session version")
	}
	return &version, nil
}

// bindOptionalJSON binds the request body when one was sent.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		return invalidPayload(err)
	}
	return nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
